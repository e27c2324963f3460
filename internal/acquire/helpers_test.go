// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pdiddy/litreview/internal/store"
	"github.com/pdiddy/litreview/pkg/types"
)

// fakeStore is an in-memory Store with failure hooks.
type fakeStore struct {
	mu      sync.Mutex
	papers  map[string]*types.Paper
	saved   []string
	getErr  error
	saveErr error

	// onGet runs before every Get with the number of prior Gets for id.
	onGet func(id string, calls int)
	gets  map[string]int
}

func newFakeStore(papers ...*types.Paper) *fakeStore {
	fs := &fakeStore{papers: map[string]*types.Paper{}, gets: map[string]int{}}
	for _, p := range papers {
		fs.papers[p.ID] = p
	}
	return fs
}

func (f *fakeStore) Get(_ context.Context, id string) (*types.Paper, error) {
	f.mu.Lock()
	calls := f.gets[id]
	f.gets[id]++
	hook := f.onGet
	f.mu.Unlock()
	if hook != nil {
		hook(id, calls)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.papers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetByDOI(_ context.Context, doi string) (*types.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.papers {
		if doi != "" && p.DOI == doi {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListByStatus(_ context.Context, status types.PaperStatus) ([]*types.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Paper
	for _, p := range f.papers {
		if p.Status == status {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveIfStatus(_ context.Context, p *types.Paper, from types.PaperStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return false, f.saveErr
	}
	cur, ok := f.papers[p.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	cp := *p
	f.papers[p.ID] = &cp
	f.saved = append(f.saved, p.ID)
	return true, nil
}

// move changes the stored status of id, as another process would.
func (f *fakeStore) move(id string, to types.PaperStatus, pdfPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.papers[id].Status = to
	f.papers[id].PDFPath = pdfPath
}

func (f *fakeStore) delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.papers, id)
}

func (f *fakeStore) paper(id string) *types.Paper {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.papers[id]
}

// sqliteStore opens a real store in a temp dir seeded with papers.
func sqliteStore(t *testing.T, papers ...*types.Paper) *store.Store {
	t.Helper()
	s, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "review.db")})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	for _, p := range papers {
		if err := s.Save(context.Background(), p); err != nil {
			t.Fatalf("seeding %s: %v", p.ID, err)
		}
	}
	return s
}

func awaiting(id, doi string) *types.Paper {
	return &types.Paper{
		ID:      id,
		Title:   "Paper " + id,
		Authors: []string{"Ada Lovelace", "Alan Turing", "Grace Hopper", "Edsger Dijkstra"},
		DOI:     doi,
		Year:    2023,
		Journal: "Journal of Examples",
		URL:     "https://publisher.example.com/" + id,
		Status:  types.StatusAwaitingPDF,
	}
}

// touch creates empty files in dir.
func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4\n"), 0o644); err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
	}
}
