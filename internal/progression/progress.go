package progression

import (
	"math"

	"huntcore/internal/model"
)

// UserProgress aggregates the user's standing: completions against the
// active catalog, plus the set of active puzzles currently open to them.
// Completions of puzzles that were later deactivated still count toward the
// completed tally.
func (s *Service) UserProgress(userID int64) (*model.Progress, error) {
	active, err := s.puzzles.ActivePuzzles()
	if err != nil {
		return nil, err
	}
	completed, err := s.completedSet(userID)
	if err != nil {
		return nil, err
	}
	nodes, err := s.loadGraph()
	if err != nil {
		return nil, err
	}

	// A not-yet-completed active puzzle is available when every one of its
	// direct prerequisites is completed; zero-prerequisite puzzles are
	// always available. This mirrors CheckAccess over one shared snapshot
	// instead of one store round-trip per candidate.
	next := []model.Puzzle{}
	for _, p := range active {
		if completed[p.ID] {
			continue
		}
		ready := true
		for _, dep := range nodes[p.ID].Dependencies {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			next = append(next, p)
		}
	}

	progress := &model.Progress{
		Completed:     len(completed),
		Total:         len(active),
		Available:     len(next),
		NextAvailable: next,
	}
	if progress.Total > 0 {
		progress.Percentage = int(math.Round(float64(progress.Completed) * 100 / float64(progress.Total)))
	}
	return progress, nil
}

// DependencyGraph renders the active catalog as nodes plus every persisted
// dependency edge, oriented prerequisite -> dependent. When userID is
// positive the nodes carry that user's completion flags; pass 0 for an
// anonymous graph.
func (s *Service) DependencyGraph(userID int64) (*model.GraphView, error) {
	active, err := s.puzzles.ActivePuzzles()
	if err != nil {
		return nil, err
	}
	edges, err := s.deps.Edges()
	if err != nil {
		return nil, err
	}

	var completed map[int64]bool
	if userID > 0 {
		completed, err = s.completedSet(userID)
		if err != nil {
			return nil, err
		}
	}

	view := &model.GraphView{
		Nodes: make([]model.GraphNode, 0, len(active)),
		Edges: make([]model.GraphEdge, 0, len(edges)),
	}
	for _, p := range active {
		node := model.GraphNode{ID: p.ID, Code: p.Code, Title: p.Title}
		if completed != nil {
			done := completed[p.ID]
			node.Completed = &done
		}
		view.Nodes = append(view.Nodes, node)
	}
	for _, e := range edges {
		view.Edges = append(view.Edges, model.GraphEdge{From: e.PrerequisiteID, To: e.PuzzleID})
	}
	return view, nil
}
