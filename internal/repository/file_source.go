package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// FileSource reads a candidate pool from a YAML or JSON file. The file holds either a
// list of candidates or a document with a "candidates" list.
type FileSource struct {
	path string
}

type poolDocument struct {
	Candidates []types.Candidate `yaml:"candidates"`
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string {
	return "file:" + filepath.Base(f.path)
}

func (f *FileSource) LoadCandidates(ctx context.Context) ([]types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool file: %w", err)
	}
	return ParseCandidates(data)
}

// ParseCandidates decodes a pool document. JSON input is accepted as YAML.
func ParseCandidates(data []byte) ([]types.Candidate, error) {
	var candidates []types.Candidate
	if err := yaml.Unmarshal(data, &candidates); err != nil {
		var doc poolDocument
		if docErr := yaml.Unmarshal(data, &doc); docErr != nil {
			return nil, fmt.Errorf("failed to parse pool file: %w", err)
		}
		candidates = doc.Candidates
	}
	if candidates == nil {
		return nil, fmt.Errorf("pool file contains no candidates")
	}
	return candidates, nil
}
