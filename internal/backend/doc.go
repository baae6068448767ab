// Package backend provides the generator implementations behind the daemon.
// It is structured into small files by concern:
//
//   - backend.go: Backend contract, Kind enumeration, Load factory.
//   - errors.go: error types and helpers (IsModelLoad).
//   - dummy.go: deterministic lorem generator for tests and bring-up.
//   - native.go: in-process llama runtime adapter. Enabled with `-tags=llama`.
//   - native_cgo.go: linker rpath hints for the llama variant.
//   - native_stub.go: no-CGO stub compiled when the tag is not set.
//
// A handle returned by Load owns one loaded model. Handles are not safe for
// concurrent use; callers serialize access. The native adapter runs each
// generation on a dedicated OS thread and hands tokens over a bounded
// channel, so NextToken blocks without stalling the caller's scheduler.
package backend
