package storage

import (
	"context"
	"errors"
)

// CorpusState loads the raw recipe corpus. The payload is a JSON array of documents.
type CorpusState interface {
	Load(ctx context.Context) ([]byte, error)
}

// TestCorpusState is a simple in-memory implementation for testing
type TestCorpusState struct {
	data  []byte
	err   error
	loads int
}

func NewTestCorpusState(data []byte) *TestCorpusState {
	return &TestCorpusState{data: data}
}

func NewTestCorpusStateWithError() *TestCorpusState {
	return &TestCorpusState{err: errors.New("not found")}
}

func (t *TestCorpusState) Load(ctx context.Context) ([]byte, error) {
	t.loads++
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

// Loads reports how many times Load was called.
func (t *TestCorpusState) Loads() int { return t.loads }
