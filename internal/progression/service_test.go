package progression

import (
	"errors"
	"path/filepath"
	"testing"

	"huntcore/internal/db"
	"huntcore/internal/graph"
	"huntcore/internal/model"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "huntcore.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database, database, database, database), database
}

func mustCreate(t *testing.T, svc *Service, code string, active bool) *model.Puzzle {
	t.Helper()
	p, err := svc.CreatePuzzle(&model.Puzzle{
		Code:       code,
		Title:      "Puzzle " + code,
		Difficulty: 3,
		Points:     100,
		IsActive:   active,
	})
	if err != nil {
		t.Fatalf("failed to create puzzle %q: %v", code, err)
	}
	return p
}

func mustAddDep(t *testing.T, svc *Service, puzzleID, prereqID int64) {
	t.Helper()
	if _, err := svc.AddDependency(puzzleID, prereqID, true); err != nil {
		t.Fatalf("failed to add dependency %d -> %d: %v", puzzleID, prereqID, err)
	}
}

func TestCreatePuzzle(t *testing.T) {
	svc, _ := newTestService(t)

	p := mustCreate(t, svc, "trailhead", true)
	if p.ID == 0 {
		t.Error("expected assigned id")
	}

	got, err := svc.PuzzleByCode("trailhead")
	if err != nil {
		t.Fatalf("lookup by code: %v", err)
	}
	if got.ID != p.ID || got.Title != "Puzzle trailhead" || !got.IsActive {
		t.Errorf("unexpected puzzle: %+v", got)
	}

	// Duplicate code is a conflict.
	_, err = svc.CreatePuzzle(&model.Puzzle{Code: "trailhead", Title: "again", Difficulty: 1, IsActive: true})
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreatePuzzleValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []model.Puzzle{
		{Code: "", Title: "t", Difficulty: 1},
		{Code: "c", Title: "", Difficulty: 1},
		{Code: "c", Title: "t", Difficulty: 0},
		{Code: "c", Title: "t", Difficulty: 11},
		{Code: "c", Title: "t", Difficulty: 1, Points: -5},
	}
	for i, p := range cases {
		if _, err := svc.CreatePuzzle(&p); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestUpdatePuzzle(t *testing.T) {
	svc, _ := newTestService(t)

	p := mustCreate(t, svc, "gate", true)
	p.Title = "The North Gate"
	p.IsActive = false
	if err := svc.UpdatePuzzle(p); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.Puzzle(p.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Title != "The North Gate" || got.IsActive {
		t.Errorf("update not applied: %+v", got)
	}

	missing := *got
	missing.ID = 9999
	if err := svc.UpdatePuzzle(&missing); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddDependency(t *testing.T) {
	svc, database := newTestService(t)

	a := mustCreate(t, svc, "a", true)
	b := mustCreate(t, svc, "b", true)

	edge, err := svc.AddDependency(b.ID, a.ID, true)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if edge.PuzzleID != b.ID || edge.PrerequisiteID != a.ID || !edge.IsRequired {
		t.Errorf("unexpected edge: %+v", edge)
	}

	if _, err := svc.AddDependency(b.ID, b.ID, true); !errors.Is(err, ErrSelfDependency) {
		t.Errorf("expected ErrSelfDependency, got %v", err)
	}
	if _, err := svc.AddDependency(b.ID, 9999, true); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown prerequisite, got %v", err)
	}
	if _, err := svc.AddDependency(9999, a.ID, true); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown puzzle, got %v", err)
	}
	if _, err := svc.AddDependency(b.ID, a.ID, true); !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for duplicate pair, got %v", err)
	}

	edges, err := database.Edges()
	if err != nil {
		t.Fatalf("edges: %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("expected exactly one persisted edge, got %d", len(edges))
	}
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	svc, _ := newTestService(t)

	// a <- b <- c, then "a requires c" would close the loop.
	a := mustCreate(t, svc, "a", true)
	b := mustCreate(t, svc, "b", true)
	c := mustCreate(t, svc, "c", true)
	mustAddDep(t, svc, b.ID, a.ID)
	mustAddDep(t, svc, c.ID, b.ID)

	if _, err := svc.AddDependency(a.ID, c.ID, true); !errors.Is(err, graph.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestAddDependenciesBatchIsAtomic(t *testing.T) {
	svc, database := newTestService(t)

	// hub <- p1..p5, but p3 already (transitively) requires hub, so the
	// third candidate closes a cycle and the whole batch must roll back.
	hub := mustCreate(t, svc, "hub", true)
	var prereqs []int64
	for _, code := range []string{"p1", "p2", "p3", "p4", "p5"} {
		prereqs = append(prereqs, mustCreate(t, svc, code, true).ID)
	}
	mustAddDep(t, svc, prereqs[2], hub.ID)

	_, err := svc.AddDependencies(hub.ID, prereqs, true)
	if !errors.Is(err, graph.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}

	edges, err := database.Edges()
	if err != nil {
		t.Fatalf("edges: %v", err)
	}
	// Only the pre-existing p3 -> hub edge may remain.
	if len(edges) != 1 || edges[0].PuzzleID != prereqs[2] {
		t.Errorf("batch left partial edges behind: %+v", edges)
	}
}

func TestAddDependenciesSkipsExistingPairs(t *testing.T) {
	svc, database := newTestService(t)

	x := mustCreate(t, svc, "x", true)
	y := mustCreate(t, svc, "y", true)
	z := mustCreate(t, svc, "z", true)
	mustAddDep(t, svc, x.ID, y.ID)

	added, err := svc.AddDependencies(x.ID, []int64{y.ID, z.ID}, true)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(added) != 1 || added[0].PrerequisiteID != z.ID {
		t.Errorf("expected only the new z edge, got %+v", added)
	}

	edges, _ := database.Edges()
	if len(edges) != 2 {
		t.Errorf("expected 2 edges, got %d", len(edges))
	}
}

func TestAddDependenciesIntraBatchDuplicates(t *testing.T) {
	svc, _ := newTestService(t)

	x := mustCreate(t, svc, "x", true)
	y := mustCreate(t, svc, "y", true)

	added, err := svc.AddDependencies(x.ID, []int64{y.ID, y.ID, y.ID}, true)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(added) != 1 {
		t.Errorf("repeated prerequisite should insert once, got %d", len(added))
	}
}

func TestRemoveDependency(t *testing.T) {
	svc, _ := newTestService(t)

	a := mustCreate(t, svc, "a", true)
	b := mustCreate(t, svc, "b", true)
	mustAddDep(t, svc, b.ID, a.ID)

	if err := svc.RemoveDependency(b.ID, a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveDependency(b.ID, a.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// The slot is reusable after removal.
	if _, err := svc.AddDependency(b.ID, a.ID, true); err != nil {
		t.Errorf("re-add after remove: %v", err)
	}
}

func TestCheckAccess(t *testing.T) {
	svc, _ := newTestService(t)

	free := mustCreate(t, svc, "free", true)
	gated := mustCreate(t, svc, "gated", true)
	other := mustCreate(t, svc, "other", true)
	inactive := mustCreate(t, svc, "closed", false)
	mustAddDep(t, svc, gated.ID, free.ID)
	mustAddDep(t, svc, gated.ID, other.ID)

	// Zero direct dependencies: granted for any user, any history.
	for _, userID := range []int64{1, 42, 9000} {
		decision, err := svc.CheckAccess(userID, free.ID)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if !decision.HasAccess || decision.Puzzle == nil {
			t.Errorf("user %d: expected unconditional access, got %+v", userID, decision)
		}
	}

	// Inactive puzzle: denied with empty lists.
	decision, err := svc.CheckAccess(1, inactive.ID)
	if err != nil {
		t.Fatalf("check inactive: %v", err)
	}
	if decision.HasAccess || decision.Puzzle != nil {
		t.Errorf("inactive puzzle must deny access: %+v", decision)
	}
	if len(decision.MissingPrerequisites) != 0 || len(decision.CompletedPrerequisites) != 0 {
		t.Errorf("inactive denial should carry empty lists: %+v", decision)
	}

	// Unmet prerequisites: denied with a partition of codes.
	if _, err := svc.CompletePuzzle(1, free.ID, CompletionInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	decision, err = svc.CheckAccess(1, gated.ID)
	if err != nil {
		t.Fatalf("check gated: %v", err)
	}
	if decision.HasAccess {
		t.Error("expected denial while a prerequisite is missing")
	}
	if len(decision.CompletedPrerequisites) != 1 || decision.CompletedPrerequisites[0] != "free" {
		t.Errorf("completed partition wrong: %v", decision.CompletedPrerequisites)
	}
	if len(decision.MissingPrerequisites) != 1 || decision.MissingPrerequisites[0] != "other" {
		t.Errorf("missing partition wrong: %v", decision.MissingPrerequisites)
	}

	// All prerequisites met: granted, puzzle included.
	if _, err := svc.CompletePuzzle(1, other.ID, CompletionInput{}); err != nil {
		t.Fatalf("complete other: %v", err)
	}
	decision, err = svc.CheckAccess(1, gated.ID)
	if err != nil {
		t.Fatalf("recheck gated: %v", err)
	}
	if !decision.HasAccess || decision.Puzzle == nil || decision.Puzzle.ID != gated.ID {
		t.Errorf("expected access granted with puzzle, got %+v", decision)
	}

	if _, err := svc.CheckAccess(1, 9999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown puzzle, got %v", err)
	}
}

func TestCompletePuzzleExactlyOnce(t *testing.T) {
	svc, database := newTestService(t)

	p := mustCreate(t, svc, "solo", true)

	score := 87
	timeSpent := 340
	c, err := svc.CompletePuzzle(7, p.ID, CompletionInput{Score: &score, TimeSpent: &timeSpent, Solution: "the key is under the mat"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.CompletedAt.IsZero() {
		t.Error("expected server-assigned completion time")
	}

	// Second completion must conflict, never overwrite or duplicate.
	if _, err := svc.CompletePuzzle(7, p.ID, CompletionInput{}); !errors.Is(err, model.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	completions, err := svc.UserCompletions(7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(completions) != 1 {
		t.Fatalf("expected one row, got %d", len(completions))
	}
	got := completions[0]
	if got.Score == nil || *got.Score != 87 || got.TimeSpent == nil || *got.TimeSpent != 340 {
		t.Errorf("optional fields lost: %+v", got)
	}
	if got.Solution != "the key is under the mat" {
		t.Errorf("solution round trip failed: %q", got.Solution)
	}

	// Stored solution is compressed, not plain text.
	var raw []byte
	err = database.QueryRow("SELECT solution FROM completions WHERE user_id = 7 AND puzzle_id = ?", p.ID).Scan(&raw)
	if err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if string(raw) == "the key is under the mat" {
		t.Error("solution stored uncompressed")
	}
}

func TestCompletePuzzleDenied(t *testing.T) {
	svc, _ := newTestService(t)

	a := mustCreate(t, svc, "a", true)
	b := mustCreate(t, svc, "b", true)
	mustAddDep(t, svc, b.ID, a.ID)

	if _, err := svc.CompletePuzzle(1, b.ID, CompletionInput{}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}

	inactive := mustCreate(t, svc, "closed", false)
	if _, err := svc.CompletePuzzle(1, inactive.ID, CompletionInput{}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for inactive puzzle, got %v", err)
	}
}

func TestUserProgress(t *testing.T) {
	svc, _ := newTestService(t)

	// 10 active puzzles, 4 roots without prerequisites, the rest chained
	// behind root r0.
	var roots []*model.Puzzle
	for _, code := range []string{"r0", "r1", "r2", "r3"} {
		roots = append(roots, mustCreate(t, svc, code, true))
	}
	for _, code := range []string{"c0", "c1", "c2", "c3", "c4", "c5"} {
		p := mustCreate(t, svc, code, true)
		mustAddDep(t, svc, p.ID, roots[0].ID)
	}

	progress, err := svc.UserProgress(500)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Completed != 0 || progress.Total != 10 || progress.Available != 4 || progress.Percentage != 0 {
		t.Errorf("fresh user: got %+v", progress)
	}

	// Completing r0 opens the six chained puzzles; 1/10 rounds to 10%.
	if _, err := svc.CompletePuzzle(500, roots[0].ID, CompletionInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	progress, err = svc.UserProgress(500)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Completed != 1 || progress.Available != 9 || progress.Percentage != 10 {
		t.Errorf("after r0: got %+v", progress)
	}
	if len(progress.NextAvailable) != 9 {
		t.Errorf("expected 9 next available, got %d", len(progress.NextAvailable))
	}
}

func TestUserProgressCountsDeactivatedCompletions(t *testing.T) {
	svc, _ := newTestService(t)

	p := mustCreate(t, svc, "fleeting", true)
	mustCreate(t, svc, "stays", true)
	if _, err := svc.CompletePuzzle(3, p.ID, CompletionInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	p.IsActive = false
	if err := svc.UpdatePuzzle(p); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	progress, err := svc.UserProgress(3)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	// The completion still counts even though the puzzle left the catalog.
	if progress.Completed != 1 || progress.Total != 1 {
		t.Errorf("got %+v", progress)
	}
}

func TestDependencyGraph(t *testing.T) {
	svc, _ := newTestService(t)

	a := mustCreate(t, svc, "a", true)
	b := mustCreate(t, svc, "b", true)
	hidden := mustCreate(t, svc, "hidden", false)
	mustAddDep(t, svc, b.ID, a.ID)
	if _, err := svc.CompletePuzzle(9, a.ID, CompletionInput{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Anonymous: active nodes only, no completion flags.
	view, err := svc.DependencyGraph(0)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if len(view.Nodes) != 2 {
		t.Fatalf("expected 2 active nodes, got %d", len(view.Nodes))
	}
	for _, n := range view.Nodes {
		if n.ID == hidden.ID {
			t.Error("inactive puzzle leaked into the graph")
		}
		if n.Completed != nil {
			t.Error("anonymous graph must not carry completion flags")
		}
	}
	if len(view.Edges) != 1 || view.Edges[0].From != a.ID || view.Edges[0].To != b.ID {
		t.Errorf("edge must point prerequisite -> dependent: %+v", view.Edges)
	}

	// Per-user: completion flags populated.
	view, err = svc.DependencyGraph(9)
	if err != nil {
		t.Fatalf("graph for user: %v", err)
	}
	for _, n := range view.Nodes {
		if n.Completed == nil {
			t.Fatalf("expected completion flag on node %d", n.ID)
		}
		if want := n.ID == a.ID; *n.Completed != want {
			t.Errorf("node %d completed=%v, want %v", n.ID, *n.Completed, want)
		}
	}
}

func TestValidateGraphDetectsInjectedCycle(t *testing.T) {
	svc, database := newTestService(t)

	a := mustCreate(t, svc, "a", true)
	b := mustCreate(t, svc, "b", true)
	mustAddDep(t, svc, b.ID, a.ID)

	result, err := svc.ValidateGraph()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected clean graph, got %+v", result)
	}

	// Simulate the concurrent-add race by writing the reverse edge
	// directly, bypassing service validation.
	if err := database.InsertEdge(a.ID, b.ID, true); err != nil {
		t.Fatalf("raw insert: %v", err)
	}
	result, err = svc.ValidateGraph()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid || len(result.Errors) == 0 {
		t.Errorf("sweep missed the injected cycle: %+v", result)
	}
}

func TestTopologicalOrderScenario(t *testing.T) {
	svc, _ := newTestService(t)

	a := mustCreate(t, svc, "A", true)
	b := mustCreate(t, svc, "B", true)
	c := mustCreate(t, svc, "C", true)
	mustAddDep(t, svc, b.ID, a.ID)
	mustAddDep(t, svc, c.ID, b.ID)

	order, err := svc.TopologicalOrder()
	if err != nil {
		t.Fatalf("topo: %v", err)
	}
	position := make(map[int64]int)
	for i, id := range order {
		position[id] = i
	}
	if !(position[a.ID] < position[b.ID] && position[b.ID] < position[c.ID]) {
		t.Errorf("expected A before B before C, got %v", order)
	}

	if _, err := svc.AddDependency(a.ID, c.ID, true); !errors.Is(err, graph.ErrCycle) {
		t.Errorf("A requiring C must be rejected: %v", err)
	}
}
