package progression

import (
	"fmt"
	"sort"
	"strings"

	"huntcore/internal/model"
)

// CheckAccess decides whether a user may attempt a puzzle right now. Only
// the puzzle's direct prerequisites are evaluated, not the transitive
// closure; completions of earlier chain members are gated the same way when
// they are recorded.
func (s *Service) CheckAccess(userID, puzzleID int64) (*model.AccessDecision, error) {
	puzzle, err := s.puzzles.PuzzleByID(puzzleID)
	if err != nil {
		return nil, fmt.Errorf("puzzle %d: %w", puzzleID, err)
	}

	decision := &model.AccessDecision{
		MissingPrerequisites:   []string{},
		CompletedPrerequisites: []string{},
	}

	if !puzzle.IsActive {
		decision.Message = fmt.Sprintf("puzzle %q is inactive", puzzle.Code)
		return decision, nil
	}

	nodes, err := s.loadGraph()
	if err != nil {
		return nil, err
	}
	node := nodes[puzzleID]

	if len(node.Dependencies) == 0 {
		decision.HasAccess = true
		decision.Puzzle = puzzle
		decision.Message = "no prerequisites required"
		return decision, nil
	}

	completed, err := s.completedSet(userID)
	if err != nil {
		return nil, err
	}

	for _, dep := range node.Dependencies {
		prereq, ok := nodes[dep]
		if !ok {
			continue
		}
		if completed[dep] {
			decision.CompletedPrerequisites = append(decision.CompletedPrerequisites, prereq.Code)
		} else {
			decision.MissingPrerequisites = append(decision.MissingPrerequisites, prereq.Code)
		}
	}
	sort.Strings(decision.CompletedPrerequisites)
	sort.Strings(decision.MissingPrerequisites)

	if len(decision.MissingPrerequisites) == 0 {
		decision.HasAccess = true
		decision.Puzzle = puzzle
		decision.Message = "all prerequisites completed"
	} else {
		decision.Message = fmt.Sprintf("missing prerequisites: %s", strings.Join(decision.MissingPrerequisites, ", "))
	}
	return decision, nil
}
