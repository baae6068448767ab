package backend

import "strings"

// loremSeed is the token sequence every dummy handle starts with.
var loremSeed = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit",
	"sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore", "et", "dolore",
	"magna", "aliqua", "enim", "ad", "minim", "veniam", "quis", "nostrud",
}

// dummyBackend emits the lorem seed followed by a processed echo of each
// prompt word. Deterministic and file-free, it exercises the full streaming
// pipeline in tests.
type dummyBackend struct {
	tokens []string
}

func loadDummy(string) (Backend, error) {
	tokens := make([]string, len(loremSeed))
	copy(tokens, loremSeed)
	return &dummyBackend{tokens: tokens}, nil
}

func (d *dummyBackend) Prompt(text string) error {
	// Each whitespace-separated word comes back with a trailing period,
	// standing in for real tokenization.
	for _, w := range strings.Fields(text) {
		d.tokens = append(d.tokens, w+".")
	}
	return nil
}

func (d *dummyBackend) NextToken() (string, bool, error) {
	if len(d.tokens) == 0 {
		return "", false, nil
	}
	tok := d.tokens[0]
	d.tokens = d.tokens[1:]
	return tok, true, nil
}

func (d *dummyBackend) Unload() error {
	d.tokens = nil
	return nil
}
