//go:build llama

package backend

import (
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"
)

// nativeBuilt indicates this binary was compiled with real llama support.
var nativeBuilt = true

const (
	nativeCtxSize   = 2048
	nativeMaxTokens = 1024

	// tokenBuffer is the capacity of the worker-to-reader token channel.
	tokenBuffer = 16

	// workerJoinWait bounds how long replacement or unload waits for the
	// generation worker to exit.
	workerJoinWait = 5 * time.Second
)

// chatTemplate wraps the raw prompt in the Zephyr-style delimiters the
// bundled chat models expect.
const chatTemplate = "<|system|>\nYou are a helpful assistant.</s>\n<|user|>\n%s</s>\n<|assistant|>\n"

// nativeBackend adapts the blocking llama runtime to the pull-based Backend
// contract. Each Prompt spawns a worker pinned to its own OS thread; tokens
// cross a bounded channel, and the channel closing is the end-of-generation
// marker regardless of how the worker stopped.
type nativeBackend struct {
	model   *llama.LLama
	threads int

	tokens chan string   // worker -> reader; closed when the worker exits
	stop   chan struct{} // closed to ask the worker to stop early
	done   chan struct{} // closed once the worker has fully exited
}

func loadNative(modelPath string) (Backend, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, ErrModelLoad("model path is empty")
	}
	m, err := llama.New(modelPath, llama.SetContext(nativeCtxSize))
	if err != nil {
		return nil, ErrModelLoad("open " + modelPath + ": " + err.Error())
	}
	return &nativeBackend{model: m, threads: runtime.NumCPU()}, nil
}

func (n *nativeBackend) Prompt(text string) error {
	// Replacing a generation implicitly cancels the previous one.
	n.stopGeneration()

	if n.model == nil {
		return ErrModelLoad("native model not initialized")
	}

	tokens := make(chan string, tokenBuffer)
	stop := make(chan struct{})
	done := make(chan struct{})
	formatted := fmt.Sprintf(chatTemplate, text)

	model := n.model
	threads := n.threads
	go func() {
		// Native inference owns this OS thread for the whole generation.
		runtime.LockOSThread()
		defer close(done)
		defer close(tokens)

		model.SetTokenCallback(func(tok string) bool {
			select {
			case <-stop:
				return false
			case tokens <- tok:
				return true
			}
		})
		if _, err := model.Predict(formatted,
			llama.SetTokens(nativeMaxTokens),
			llama.SetThreads(threads),
		); err != nil {
			// The deferred close is the reader's end-of-stream signal, so a
			// failed completion surfaces as an empty generation, not a hang.
			log.Printf("backend=native event=predict_error err=%v", err)
		}
	}()

	n.tokens, n.stop, n.done = tokens, stop, done
	return nil
}

func (n *nativeBackend) NextToken() (string, bool, error) {
	if n.tokens == nil {
		return "", false, nil
	}
	tok, ok := <-n.tokens
	if !ok {
		// Worker exited on its own; reclaim the generation resources.
		n.stopGeneration()
		return "", false, nil
	}
	return tok, true, nil
}

func (n *nativeBackend) Unload() error {
	n.stopGeneration()
	if n.model != nil {
		n.model.Free()
		n.model = nil
	}
	return nil
}

// stopGeneration signals the active worker and waits a bounded time for it
// to exit. Join timeouts are logged, never propagated: a generation that
// already finished is a success.
func (n *nativeBackend) stopGeneration() {
	if n.stop != nil {
		close(n.stop)
		n.stop = nil
	}
	if n.done != nil {
		select {
		case <-n.done:
		case <-time.After(workerJoinWait):
			log.Printf("backend=native event=worker_join_timeout wait=%s", workerJoinWait)
		}
		n.done = nil
	}
	n.tokens = nil
}
