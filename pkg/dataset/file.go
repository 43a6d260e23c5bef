package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rodneyosodo/hypcluster/evaluation"
)

type clientFile struct {
	ID        string  `json:"id"`
	Selection []Batch `json:"selection"`
	Test      []Batch `json:"test"`
}

type fileProvider struct {
	dir string
}

type fileIterator struct {
	dir   string
	files []string
	pos   int
}

// NewFileProvider serves clients from a directory holding one JSON file per
// client. Files are visited in name order.
func NewFileProvider(dir string) Provider {
	return &fileProvider{dir: dir}
}

type dirResolver struct{}

// NewDirResolver resolves dataset references as local directories.
func NewDirResolver() Resolver {
	return dirResolver{}
}

func (dirResolver) Resolve(_ context.Context, ref string) (Provider, error) {
	info, err := os.Stat(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset %s: %w", ref, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset reference %s is not a directory", ref)
	}

	return NewFileProvider(ref), nil
}

func (p *fileProvider) Clients(_ context.Context) (Iterator, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory %s: %w", p.dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	return &fileIterator{dir: p.dir, files: files}, nil
}

func (it *fileIterator) Next(ctx context.Context) (evaluation.ClientData, error) {
	if err := ctx.Err(); err != nil {
		return evaluation.ClientData{}, err
	}
	if it.pos >= len(it.files) {
		return evaluation.ClientData{}, io.EOF
	}

	name := it.files[it.pos]
	it.pos++

	data, err := os.ReadFile(filepath.Join(it.dir, name))
	if err != nil {
		return evaluation.ClientData{}, fmt.Errorf("failed to read client file %s: %w", name, err)
	}

	var cf clientFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return evaluation.ClientData{}, fmt.Errorf("failed to parse client file %s: %w", name, err)
	}
	if cf.ID == "" {
		cf.ID = strings.TrimSuffix(name, ".json")
	}

	return evaluation.ClientData{
		ID:        cf.ID,
		Selection: evaluation.NewSliceSource(toBatches(cf.Selection)...),
		Test:      evaluation.NewSliceSource(toBatches(cf.Test)...),
	}, nil
}

func toBatches(batches []Batch) []evaluation.Batch {
	out := make([]evaluation.Batch, len(batches))
	for i, b := range batches {
		out[i] = b
	}

	return out
}
