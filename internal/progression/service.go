// Package progression implements the puzzle gating services: dependency
// mutation, access resolution, completion tracking, and progress
// aggregation. The relational store is the sole source of truth; every
// graph analysis rebuilds its snapshot from the stores, so there is no
// long-lived in-memory graph to go stale across concurrent callers.
package progression

import (
	"errors"

	"huntcore/internal/graph"
	"huntcore/internal/model"
)

// Service-level sentinel errors. Storage-level conditions surface as
// model.ErrNotFound and model.ErrAlreadyExists; cycles as graph.ErrCycle.
var (
	ErrValidation     = errors.New("invalid input")
	ErrSelfDependency = errors.New("puzzle cannot depend on itself")
	ErrAccessDenied   = errors.New("access denied")
)

// PuzzleStore is the persisted puzzle catalog.
type PuzzleStore interface {
	PuzzleByID(id int64) (*model.Puzzle, error)
	PuzzleByCode(code string) (*model.Puzzle, error)
	ListPuzzles() ([]model.Puzzle, error)
	ActivePuzzles() ([]model.Puzzle, error)
	CreatePuzzle(p *model.Puzzle) (*model.Puzzle, error)
	UpdatePuzzle(p *model.Puzzle) error
}

// DependencyStore is the persisted dependency edge set. InsertEdges must be
// atomic: either every edge commits or none do.
type DependencyStore interface {
	Edges() ([]model.DependencyEdge, error)
	Edge(puzzleID, prerequisiteID int64) (*model.DependencyEdge, error)
	InsertEdge(puzzleID, prerequisiteID int64, isRequired bool) error
	InsertEdges(edges []model.DependencyEdge) error
	DeleteEdge(puzzleID, prerequisiteID int64) error
}

// CompletionStore is the persisted per-user completion set. InsertCompletion
// must enforce (user, puzzle) uniqueness and return model.ErrAlreadyExists
// for a duplicate, even under concurrent inserts.
type CompletionStore interface {
	Completion(userID, puzzleID int64) (*model.Completion, error)
	InsertCompletion(c *model.Completion) error
	UserCompletions(userID int64) ([]model.Completion, error)
}

// AuditLog records mutations. Audit writes are best effort and never fail
// the mutation they describe.
type AuditLog interface {
	WriteAudit(action, targetType, targetID string, data map[string]string) error
}

// Service wires the stores together. All methods are safe for concurrent
// use; read paths never mutate shared state.
type Service struct {
	puzzles     PuzzleStore
	deps        DependencyStore
	completions CompletionStore
	audit       AuditLog
}

// New creates a Service. audit may be nil to disable audit logging.
func New(puzzles PuzzleStore, deps DependencyStore, completions CompletionStore, audit AuditLog) *Service {
	return &Service{puzzles: puzzles, deps: deps, completions: completions, audit: audit}
}

// loadGraph builds a fresh analyzer snapshot from the stores: every puzzle,
// active or not, with its direct prerequisite ids.
func (s *Service) loadGraph() (map[int64]*graph.Node, error) {
	puzzles, err := s.puzzles.ListPuzzles()
	if err != nil {
		return nil, err
	}
	edges, err := s.deps.Edges()
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*graph.Node, len(puzzles))
	for _, p := range puzzles {
		nodes[p.ID] = &graph.Node{ID: p.ID, Code: p.Code, Title: p.Title}
	}
	for _, e := range edges {
		if n, ok := nodes[e.PuzzleID]; ok {
			n.Dependencies = append(n.Dependencies, e.PrerequisiteID)
		}
	}
	return nodes, nil
}

// completedSet returns the ids of every puzzle the user has completed.
func (s *Service) completedSet(userID int64) (map[int64]bool, error) {
	completions, err := s.completions.UserCompletions(userID)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(completions))
	for _, c := range completions {
		set[c.PuzzleID] = true
	}
	return set, nil
}

func (s *Service) writeAudit(action, targetType, targetID string, data map[string]string) {
	if s.audit == nil {
		return
	}
	// Best effort: a failed audit write must not roll back the mutation.
	_ = s.audit.WriteAudit(action, targetType, targetID, data)
}
