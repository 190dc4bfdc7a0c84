package progression

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"huntcore/internal/manifest"
	"huntcore/internal/model"
)

// ImportSummary describes what a manifest import changed.
type ImportSummary struct {
	BatchID        string
	PuzzlesCreated int
	EdgesAdded     int
}

// ImportManifest applies a parsed manifest document: puzzles missing from
// the catalog are created, then each entry's prerequisites are added through
// the transactional batch path. Existing puzzles are left as they are and
// existing edges are skipped. fingerprint identifies the raw document in the
// audit log.
func (s *Service) ImportManifest(doc *manifest.Document, fingerprint string) (*ImportSummary, error) {
	summary := &ImportSummary{BatchID: uuid.New().String()}

	idsByCode := make(map[string]int64, len(doc.Puzzles))
	for _, entry := range doc.Puzzles {
		existing, err := s.puzzles.PuzzleByCode(entry.Code)
		if err == nil {
			idsByCode[entry.Code] = existing.ID
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		created, err := s.CreatePuzzle(&model.Puzzle{
			Code:        entry.Code,
			Title:       entry.Title,
			Description: entry.Description,
			Difficulty:  entry.Difficulty,
			Points:      entry.Points,
			IsActive:    !entry.Inactive,
		})
		if err != nil {
			return nil, fmt.Errorf("importing puzzle %q: %w", entry.Code, err)
		}
		idsByCode[entry.Code] = created.ID
		summary.PuzzlesCreated++
	}

	for _, entry := range doc.Puzzles {
		if len(entry.Requires) == 0 {
			continue
		}
		prereqIDs := make([]int64, 0, len(entry.Requires))
		for _, req := range entry.Requires {
			prereqIDs = append(prereqIDs, idsByCode[req])
		}
		added, err := s.AddDependencies(idsByCode[entry.Code], prereqIDs, true)
		if err != nil {
			return nil, fmt.Errorf("importing prerequisites of %q: %w", entry.Code, err)
		}
		summary.EdgesAdded += len(added)
	}

	s.writeAudit("graph.import", "manifest", summary.BatchID, map[string]string{
		"fingerprint":     fingerprint,
		"puzzles_created": strconv.Itoa(summary.PuzzlesCreated),
		"edges_added":     strconv.Itoa(summary.EdgesAdded),
	})
	return summary, nil
}

// ExportManifest rebuilds a manifest document from the stores, covering the
// entire catalog with prerequisites expressed as codes.
func (s *Service) ExportManifest() (*manifest.Document, error) {
	puzzles, err := s.puzzles.ListPuzzles()
	if err != nil {
		return nil, err
	}
	edges, err := s.deps.Edges()
	if err != nil {
		return nil, err
	}

	codesByID := make(map[int64]string, len(puzzles))
	for _, p := range puzzles {
		codesByID[p.ID] = p.Code
	}
	requires := make(map[int64][]string)
	for _, e := range edges {
		if code, ok := codesByID[e.PrerequisiteID]; ok {
			requires[e.PuzzleID] = append(requires[e.PuzzleID], code)
		}
	}

	out := &manifest.Document{Puzzles: make([]manifest.Entry, 0, len(puzzles))}
	for _, p := range puzzles {
		reqs := requires[p.ID]
		sort.Strings(reqs)
		out.Puzzles = append(out.Puzzles, manifest.Entry{
			Code:        p.Code,
			Title:       p.Title,
			Description: p.Description,
			Difficulty:  p.Difficulty,
			Points:      p.Points,
			Inactive:    !p.IsActive,
			Requires:    reqs,
		})
	}
	return out, nil
}
