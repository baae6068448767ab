package backend

import (
	"fmt"
	"strings"
)

// Kind enumerates the compiled-in generator implementations.
type Kind string

const (
	// Dummy emits deterministic lorem tokens without loading any model file.
	Dummy Kind = "dummy"
	// Native wraps the in-process llama runtime. Requires the 'llama' build tag.
	Native Kind = "native"
)

// Backend is the generator contract. A handle owns one loaded model.
type Backend interface {
	// Prompt begins a new generation over text, cancelling any generation
	// still in progress on this handle.
	Prompt(text string) error
	// NextToken blocks until the next chunk is available. ok is false once
	// the generation is exhausted and stays false until the next Prompt.
	NextToken() (tok string, ok bool, err error)
	// Unload releases the model. The handle is unusable afterwards.
	Unload() error
}

// Available lists the kinds this binary can actually serve.
func Available() []Kind {
	kinds := []Kind{Dummy}
	if nativeBuilt {
		kinds = append(kinds, Native)
	}
	return kinds
}

// Default returns the richest available kind: native when built, else dummy.
func Default() Kind {
	if nativeBuilt {
		return Native
	}
	return Dummy
}

// ParseKind resolves a case-insensitive kind name against the available set.
// The error for an unknown name lists what this build can serve.
func ParseKind(name string) (Kind, error) {
	want := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range Available() {
		if k == want {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q (available: %s)", name, kindNames())
}

func kindNames() string {
	names := make([]string, 0, 2)
	for _, k := range Available() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

// Load opens the model for kind at modelPath and returns a ready handle.
// Failures of any sort carry the model-load classification.
func Load(kind Kind, modelPath string) (Backend, error) {
	switch kind {
	case Dummy:
		return loadDummy(modelPath)
	case Native:
		return loadNative(modelPath)
	default:
		return nil, ErrModelLoad(fmt.Sprintf("unknown backend kind %q", kind))
	}
}
