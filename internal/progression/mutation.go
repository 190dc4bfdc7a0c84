package progression

import (
	"errors"
	"fmt"
	"strconv"

	"huntcore/internal/graph"
	"huntcore/internal/model"
)

// AddDependency records that puzzleID requires prerequisiteID. The edge is
// rejected if it is a self-dependency, references an unknown puzzle, already
// exists, or would close a cycle.
//
// The check-then-insert is not wrapped in a transaction: two concurrent
// adds, each individually acyclic, can jointly form a cycle. ValidateGraph
// is the detection sweep for that accepted race; bulk mutations should use
// AddDependencies, which is fully transactional.
func (s *Service) AddDependency(puzzleID, prerequisiteID int64, isRequired bool) (*model.DependencyEdge, error) {
	if puzzleID == prerequisiteID {
		return nil, fmt.Errorf("%w: puzzle %d", ErrSelfDependency, puzzleID)
	}
	if _, err := s.puzzles.PuzzleByID(puzzleID); err != nil {
		return nil, fmt.Errorf("puzzle %d: %w", puzzleID, err)
	}
	if _, err := s.puzzles.PuzzleByID(prerequisiteID); err != nil {
		return nil, fmt.Errorf("prerequisite %d: %w", prerequisiteID, err)
	}

	if _, err := s.deps.Edge(puzzleID, prerequisiteID); err == nil {
		return nil, fmt.Errorf("dependency %d -> %d: %w", puzzleID, prerequisiteID, model.ErrAlreadyExists)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	nodes, err := s.loadGraph()
	if err != nil {
		return nil, err
	}
	if graph.DetectCycle(nodes, puzzleID, prerequisiteID) {
		return nil, fmt.Errorf("%w: puzzle %d cannot require %d", graph.ErrCycle, puzzleID, prerequisiteID)
	}

	if err := s.deps.InsertEdge(puzzleID, prerequisiteID, isRequired); err != nil {
		return nil, err
	}
	s.writeAudit("dependency.add", "puzzle", strconv.FormatInt(puzzleID, 10), map[string]string{
		"prerequisite_id": strconv.FormatInt(prerequisiteID, 10),
	})
	return s.deps.Edge(puzzleID, prerequisiteID)
}

// AddDependencies records a batch of prerequisites for one puzzle in a
// single atomic step. Pairs that already exist are skipped. Each remaining
// candidate is validated against the graph as extended by the edges accepted
// earlier in the same call, so an intra-batch cycle is caught before
// anything is written. Any failure leaves the store untouched.
func (s *Service) AddDependencies(puzzleID int64, prerequisiteIDs []int64, isRequired bool) ([]model.DependencyEdge, error) {
	if _, err := s.puzzles.PuzzleByID(puzzleID); err != nil {
		return nil, fmt.Errorf("puzzle %d: %w", puzzleID, err)
	}

	nodes, err := s.loadGraph()
	if err != nil {
		return nil, err
	}
	node := nodes[puzzleID]

	existing := make(map[int64]bool, len(node.Dependencies))
	for _, dep := range node.Dependencies {
		existing[dep] = true
	}

	var batch []model.DependencyEdge
	for _, prereqID := range prerequisiteIDs {
		if prereqID == puzzleID {
			return nil, fmt.Errorf("%w: puzzle %d", ErrSelfDependency, puzzleID)
		}
		if _, ok := nodes[prereqID]; !ok {
			return nil, fmt.Errorf("prerequisite %d: %w", prereqID, model.ErrNotFound)
		}
		if existing[prereqID] {
			continue
		}
		if graph.DetectCycle(nodes, puzzleID, prereqID) {
			return nil, fmt.Errorf("%w: puzzle %d cannot require %d", graph.ErrCycle, puzzleID, prereqID)
		}

		// Extend the in-memory snapshot so later candidates are checked
		// against the graph including this edge.
		node.Dependencies = append(node.Dependencies, prereqID)
		existing[prereqID] = true
		batch = append(batch, model.DependencyEdge{
			PuzzleID:       puzzleID,
			PrerequisiteID: prereqID,
			IsRequired:     isRequired,
		})
	}

	if err := s.deps.InsertEdges(batch); err != nil {
		return nil, err
	}
	if len(batch) > 0 {
		s.writeAudit("dependency.add_batch", "puzzle", strconv.FormatInt(puzzleID, 10), map[string]string{
			"count": strconv.Itoa(len(batch)),
		})
	}
	return batch, nil
}

// RemoveDependency deletes a dependency edge. Removing an edge can never
// introduce a cycle, so no graph validation is needed.
func (s *Service) RemoveDependency(puzzleID, prerequisiteID int64) error {
	if err := s.deps.DeleteEdge(puzzleID, prerequisiteID); err != nil {
		return fmt.Errorf("dependency %d -> %d: %w", puzzleID, prerequisiteID, err)
	}
	s.writeAudit("dependency.remove", "puzzle", strconv.FormatInt(puzzleID, 10), map[string]string{
		"prerequisite_id": strconv.FormatInt(prerequisiteID, 10),
	})
	return nil
}
