package storage

import (
	"context"
	"fmt"
	"os"
)

type FileCorpusState struct {
	FilePath string
}

func NewFileCorpusState(filePath string) *FileCorpusState {
	return &FileCorpusState{FilePath: filePath}
}

func (f *FileCorpusState) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", f.FilePath, err)
	}
	return data, nil
}
