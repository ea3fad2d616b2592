package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePoolFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileSource_YAMLList(t *testing.T) {
	path := writePoolFile(t, "pool.yaml", `
- id: gk1
  name: Donnarumma
  position: Goalkeeper
  performance_score: 70.5
  market_value: 40
  nationality: Italy
- id: cf1
  name: Kane
  position: Centre-Forward
  performance_score: 95
  market_value: 100
`)
	source := NewFileSource(path)
	assert.Equal(t, "file:pool.yaml", source.Name())

	candidates, err := source.LoadCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Donnarumma", candidates[0].Name)
	assert.Equal(t, 70.5, candidates[0].PerformanceScore)
	assert.Equal(t, "Centre-Forward", candidates[1].Position)
	assert.Empty(t, candidates[1].Nationality)
}

func TestFileSource_JSONDocument(t *testing.T) {
	path := writePoolFile(t, "pool.json", `{"candidates": [
  {"id": "lb1", "name": "Theo", "position": "Left-Back", "performance_score": 81.2, "market_value": 60, "nationality": "France"}
]}`)

	candidates, err := NewFileSource(path).LoadCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "lb1", candidates[0].ID)
	assert.Equal(t, 60.0, candidates[0].MarketValue)
}

func TestFileSource_Errors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")).LoadCandidates(context.Background())
	assert.Error(t, err)

	_, err = NewFileSource(writePoolFile(t, "empty.yaml", "")).LoadCandidates(context.Background())
	assert.Error(t, err)

	_, err = NewFileSource(writePoolFile(t, "bad.yaml", "candidates: [unterminated")).LoadCandidates(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileSource(writePoolFile(t, "ok.yaml", "- id: a\n")).LoadCandidates(ctx)
	assert.Error(t, err)
}
