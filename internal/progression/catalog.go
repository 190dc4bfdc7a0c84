package progression

import (
	"fmt"
	"strconv"

	"huntcore/internal/graph"
	"huntcore/internal/model"
)

func validatePuzzle(p *model.Puzzle) error {
	if p.Code == "" {
		return fmt.Errorf("%w: code must not be empty", ErrValidation)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if p.Difficulty < 1 || p.Difficulty > 10 {
		return fmt.Errorf("%w: difficulty %d outside [1,10]", ErrValidation, p.Difficulty)
	}
	if p.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", ErrValidation)
	}
	return nil
}

// CreatePuzzle adds a puzzle to the catalog. The code must be unique; a
// collision surfaces as model.ErrAlreadyExists.
func (s *Service) CreatePuzzle(p *model.Puzzle) (*model.Puzzle, error) {
	if err := validatePuzzle(p); err != nil {
		return nil, err
	}
	created, err := s.puzzles.CreatePuzzle(p)
	if err != nil {
		return nil, fmt.Errorf("puzzle %q: %w", p.Code, err)
	}
	s.writeAudit("puzzle.create", "puzzle", strconv.FormatInt(created.ID, 10), map[string]string{
		"code": created.Code,
	})
	return created, nil
}

// UpdatePuzzle overwrites the mutable fields of an existing puzzle.
func (s *Service) UpdatePuzzle(p *model.Puzzle) error {
	if err := validatePuzzle(p); err != nil {
		return err
	}
	if err := s.puzzles.UpdatePuzzle(p); err != nil {
		return fmt.Errorf("puzzle %d: %w", p.ID, err)
	}
	s.writeAudit("puzzle.update", "puzzle", strconv.FormatInt(p.ID, 10), map[string]string{
		"code": p.Code,
	})
	return nil
}

// Puzzle retrieves a puzzle by id.
func (s *Service) Puzzle(id int64) (*model.Puzzle, error) {
	p, err := s.puzzles.PuzzleByID(id)
	if err != nil {
		return nil, fmt.Errorf("puzzle %d: %w", id, err)
	}
	return p, nil
}

// PuzzleByCode retrieves a puzzle by its unique code.
func (s *Service) PuzzleByCode(code string) (*model.Puzzle, error) {
	p, err := s.puzzles.PuzzleByCode(code)
	if err != nil {
		return nil, fmt.Errorf("puzzle %q: %w", code, err)
	}
	return p, nil
}

// ListPuzzles lists the whole catalog, active or not.
func (s *Service) ListPuzzles() ([]model.Puzzle, error) {
	return s.puzzles.ListPuzzles()
}

// ActivePuzzles lists the active catalog.
func (s *Service) ActivePuzzles() ([]model.Puzzle, error) {
	return s.puzzles.ActivePuzzles()
}

// ValidateGraph sweeps the full persisted graph for dangling prerequisite
// references and cycles. It detects damage (including the accepted
// concurrent-add race) but never repairs it.
func (s *Service) ValidateGraph() (graph.ValidationResult, error) {
	nodes, err := s.loadGraph()
	if err != nil {
		return graph.ValidationResult{}, err
	}
	return graph.Validate(nodes), nil
}

// TopologicalOrder returns every puzzle id ordered so that prerequisites
// precede their dependents.
func (s *Service) TopologicalOrder() ([]int64, error) {
	nodes, err := s.loadGraph()
	if err != nil {
		return nil, err
	}
	return graph.TopologicalSort(nodes)
}
