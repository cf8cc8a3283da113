// Package portfolio matches job skills to showcase links kept in a vector store.
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/amishk599/hireflow/internal/model"
	"github.com/amishk599/hireflow/internal/vectorstore"
)

// DefaultResultsPerSkill is how many portfolio entries are returned per skill term.
const DefaultResultsPerSkill = 2

// Collection is the subset of vectorstore.Collection the portfolio needs.
type Collection interface {
	Count(ctx context.Context) (int, error)
	Add(ctx context.Context, records []vectorstore.Record) error
	Query(ctx context.Context, texts []string, n int) ([][]vectorstore.Match, error)
	Reset(ctx context.Context) error
	WithLock(ctx context.Context, fn func() error) error
}

// Portfolio owns the dataset rows and the collection they are loaded into.
type Portfolio struct {
	entries    []Entry
	collection Collection
	perSkill   int
	logger     *slog.Logger

	mu sync.Mutex // serializes Load and Reset within the process
}

// New reads the dataset at csvPath. A missing file is an error.
func New(csvPath string, collection Collection, perSkill int, logger *slog.Logger) (*Portfolio, error) {
	entries, err := ReadDataset(csvPath)
	if err != nil {
		return nil, err
	}
	if perSkill <= 0 {
		perSkill = DefaultResultsPerSkill
	}
	return &Portfolio{
		entries:    entries,
		collection: collection,
		perSkill:   perSkill,
		logger:     logger,
	}, nil
}

// Entries returns the dataset rows read at construction.
func (p *Portfolio) Entries() []Entry {
	return p.entries
}

// Load inserts every dataset row into the collection if, and only if, the
// collection is empty. Edits to the CSV are therefore ignored until the store
// is reset. Safe for concurrent callers in one process and across processes
// sharing the store directory.
func (p *Portfolio) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// The count is checked on every call: another process may have reset the
	// store since the last load.
	err := p.collection.WithLock(ctx, func() error {
		n, err := p.collection.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			p.logger.Debug("portfolio already loaded", "entries", n)
			return nil
		}

		records := make([]vectorstore.Record, len(p.entries))
		for i, e := range p.entries {
			records[i] = vectorstore.Record{
				ID:       uuid.NewString(),
				Document: e.Techstack,
				Metadata: model.Metadata{"links": e.Links},
			}
		}
		if err := p.collection.Add(ctx, records); err != nil {
			return err
		}
		p.logger.Info("portfolio loaded", "entries", len(records))
		return nil
	})
	if err != nil {
		return fmt.Errorf("loading portfolio: %w", err)
	}

	return nil
}

// Reset empties the collection so the next Load re-reads the dataset.
func (p *Portfolio) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.collection.WithLock(ctx, func() error {
		return p.collection.Reset(ctx)
	})
	if err != nil {
		return fmt.Errorf("resetting portfolio: %w", err)
	}
	return nil
}

// Query returns, for each skill in order, the metadata of the nearest
// portfolio entries. No skills means no lookup at all.
func (p *Portfolio) Query(ctx context.Context, skills []string) ([][]model.Metadata, error) {
	if len(skills) == 0 {
		return [][]model.Metadata{}, nil
	}

	groups, err := p.collection.Query(ctx, skills, p.perSkill)
	if err != nil {
		return nil, fmt.Errorf("querying portfolio: %w", err)
	}

	out := make([][]model.Metadata, len(groups))
	for i, g := range groups {
		metas := make([]model.Metadata, len(g))
		for j, m := range g {
			metas[j] = m.Metadata
		}
		out[i] = metas
	}
	return out, nil
}

// FlattenLinks collects the "links" values of every group into one list,
// dropping empties and duplicates while keeping first-seen order.
func FlattenLinks(groups [][]model.Metadata) []string {
	seen := make(map[string]bool)
	var links []string
	for _, g := range groups {
		for _, meta := range g {
			link := meta["links"]
			if link == "" || seen[link] {
				continue
			}
			seen[link] = true
			links = append(links, link)
		}
	}
	return links
}
