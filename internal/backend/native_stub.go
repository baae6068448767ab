//go:build !llama

package backend

// This file provides a no-CGO stub for the native backend. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real adapter lives in native.go (tagged 'llama').

// nativeBuilt indicates this binary was compiled with real llama support.
var nativeBuilt = false

func loadNative(modelPath string) (Backend, error) {
	// Fail fast rather than mock inference in untagged builds.
	return nil, ErrModelLoad("native backend not built (missing 'llama' build tag)")
}
