// Package conflictlist stores each firm's known parties and serves the
// embedding-similarity search behind conflict-of-interest checks.
package conflictlist

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/casefront/engage/internal/domain"
	"github.com/casefront/engage/internal/intake"
)

// Store keeps one vector collection per firm. Entries are append-only;
// in-flight searches against a slightly stale list are acceptable and are
// re-run on the next identity update.
type Store struct {
	db       *chromem.DB
	embedder chromem.EmbeddingFunc

	mu          sync.Mutex
	collections map[uuid.UUID]*chromem.Collection
}

// New opens (or creates) the conflict list store. persistPath may be
// empty for an in-memory store, used in tests.
func New(persistPath string, embedder chromem.EmbeddingFunc) (*Store, error) {
	var (
		db  *chromem.DB
		err error
	)

	if persistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(persistPath, "conflicts.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("conflictlist.New: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &Store{
		db:          db,
		embedder:    embedder,
		collections: make(map[uuid.UUID]*chromem.Collection),
	}, nil
}

func (s *Store) collectionFor(firmID uuid.UUID) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[firmID]; ok {
		return c, nil
	}

	c, err := s.db.GetOrCreateCollection("conflicts-"+firmID.String(), nil, s.embedder)
	if err != nil {
		return nil, fmt.Errorf("conflictlist: collection for firm %s: %w", firmID, err)
	}
	s.collections[firmID] = c

	return c, nil
}

// Add indexes a conflict entry for its firm. The indexed text combines
// name and notes so organizations and aliases both match.
func (s *Store) Add(ctx context.Context, entry *domain.ConflictEntry) error {
	c, err := s.collectionFor(entry.FirmID)
	if err != nil {
		return fmt.Errorf("conflictlist.Store.Add: %w", err)
	}

	content := entry.Name
	if entry.Notes != "" {
		content += "\n" + entry.Notes
	}

	err = c.AddDocument(ctx, chromem.Document{
		ID:      entry.ID.String(),
		Content: content,
		Metadata: map[string]string{
			"name": entry.Name,
			"kind": entry.Kind,
		},
	})
	if err != nil {
		return fmt.Errorf("conflictlist.Store.Add: %w", err)
	}

	return nil
}

// Search returns the nearest conflict entries for one identity fragment.
// Satisfies the detector's SimilaritySearcher port.
func (s *Store) Search(ctx context.Context, firmID uuid.UUID, fragment string, topK int) ([]intake.SimilarityMatch, error) {
	c, err := s.collectionFor(firmID)
	if err != nil {
		return nil, fmt.Errorf("conflictlist.Store.Search: %w", err)
	}

	if topK <= 0 {
		topK = 5
	}
	if count := c.Count(); count == 0 {
		return nil, nil
	} else if topK > count {
		topK = count
	}

	results, err := c.Query(ctx, fragment, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("conflictlist.Store.Search: %w", err)
	}

	matches := make([]intake.SimilarityMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, intake.SimilarityMatch{
			EntryID:    r.ID,
			Name:       r.Metadata["name"],
			Kind:       r.Metadata["kind"],
			Similarity: float64(r.Similarity),
		})
	}

	return matches, nil
}

// Count returns the number of indexed entries for a firm.
func (s *Store) Count(firmID uuid.UUID) int {
	c, err := s.collectionFor(firmID)
	if err != nil {
		return 0
	}
	return c.Count()
}
