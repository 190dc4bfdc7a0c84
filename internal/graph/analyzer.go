// Package graph provides pure analysis over an in-memory snapshot of the
// puzzle dependency graph. Nothing in this package touches storage; callers
// rebuild the snapshot from the store for every invocation so that reads are
// never served from a stale cached graph.
//
// Edges are persisted as "puzzle depends on prerequisite". Cycle detection
// and topological ordering walk the reverse, unlocks-direction adjacency
// (prerequisite -> dependent), which is rebuilt explicitly here rather than
// being guessed at per call site.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when the dependency graph contains, or a proposed
// edge would close, a cycle.
var ErrCycle = errors.New("dependency cycle detected")

// Node is one puzzle in the snapshot. Dependencies holds the ids of its
// direct prerequisites.
type Node struct {
	ID           int64
	Code         string
	Title        string
	Dependencies []int64
}

// visit states for the iterative depth-first searches. Traversals use an
// explicit stack rather than recursion so that pathological graphs cannot
// exhaust goroutine stack depth.
const (
	stateUnvisited = iota
	stateOnStack
	stateDone
)

// unlocksAdjacency builds the prerequisite -> dependent adjacency from the
// stored dependency direction. Successor lists are sorted so traversal order
// is deterministic.
func unlocksAdjacency(nodes map[int64]*Node) map[int64][]int64 {
	unlocks := make(map[int64][]int64, len(nodes))
	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			unlocks[dep] = append(unlocks[dep], n.ID)
		}
	}
	for _, successors := range unlocks {
		sort.Slice(successors, func(i, j int) bool { return successors[i] < successors[j] })
	}
	return unlocks
}

// sortedIDs returns the node ids in ascending order.
func sortedIDs(nodes map[int64]*Node) []int64 {
	ids := make([]int64, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DetectCycle reports whether adding the edge "fromID depends on toID" would
// create a cycle. A self-dependency is always cyclic. The check runs a
// three-state depth-first search over the unlocks-direction adjacency with
// the proposed edge already applied; reaching an on-stack node again is a
// back edge and therefore a cycle. O(V+E).
func DetectCycle(nodes map[int64]*Node, fromID, toID int64) bool {
	if fromID == toID {
		return true
	}

	unlocks := unlocksAdjacency(nodes)
	unlocks[toID] = append(unlocks[toID], fromID)

	state := make(map[int64]int, len(nodes))
	for _, start := range sortedIDs(nodes) {
		if state[start] != stateUnvisited {
			continue
		}
		stack := []int64{start}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			switch state[id] {
			case stateUnvisited:
				state[id] = stateOnStack
				for _, next := range unlocks[id] {
					switch state[next] {
					case stateOnStack:
						return true
					case stateUnvisited:
						stack = append(stack, next)
					}
				}
			case stateOnStack:
				// Second visit: every successor has been processed.
				state[id] = stateDone
				stack = stack[:len(stack)-1]
			default:
				// Duplicate stack entry for a finished node.
				stack = stack[:len(stack)-1]
			}
		}
	}
	return false
}

// TopologicalSort returns an ordering of all nodes in which every
// prerequisite appears before the puzzles it unlocks, using Kahn's
// algorithm over the unlocks-direction adjacency. A short result means the
// leftover nodes all sit on cycles, so ErrCycle is returned; this doubles as
// the full-graph integrity check.
func TopologicalSort(nodes map[int64]*Node) ([]int64, error) {
	unlocks := unlocksAdjacency(nodes)

	// In-degree in the unlocks direction is the number of direct
	// prerequisites that actually exist in the snapshot.
	inDegree := make(map[int64]int, len(nodes))
	for _, n := range nodes {
		count := 0
		for _, dep := range n.Dependencies {
			if _, ok := nodes[dep]; ok {
				count++
			}
		}
		inDegree[n.ID] = count
	}

	var queue []int64
	for _, id := range sortedIDs(nodes) {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]int64, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range unlocks[id] {
			if _, ok := nodes[next]; !ok {
				continue
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, fmt.Errorf("%w: %d of %d puzzles unsortable", ErrCycle, len(nodes)-len(order), len(nodes))
	}
	return order, nil
}

// AllPrerequisites returns the deduplicated transitive closure of the given
// puzzle's prerequisites, excluding the puzzle itself. The walk follows the
// stored dependency direction iteratively. A dependency-free puzzle yields
// an empty slice.
func AllPrerequisites(nodes map[int64]*Node, id int64) []int64 {
	start, ok := nodes[id]
	if !ok {
		return []int64{}
	}

	seen := map[int64]bool{id: true}
	result := []int64{}
	stack := append([]int64(nil), start.Dependencies...)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)
		if n, ok := nodes[current]; ok {
			stack = append(stack, n.Dependencies...)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Unlocked returns the ids of puzzles that are not yet completed, have at
// least one direct prerequisite, and whose direct prerequisites are all in
// the completed set. Puzzles without prerequisites are never reported: they
// are always available rather than newly unlocked.
func Unlocked(nodes map[int64]*Node, completed map[int64]bool) []int64 {
	var unlocked []int64
	for _, id := range sortedIDs(nodes) {
		n := nodes[id]
		if completed[id] || len(n.Dependencies) == 0 {
			continue
		}
		ready := true
		for _, dep := range n.Dependencies {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if ready {
			unlocked = append(unlocked, id)
		}
	}
	return unlocked
}

// ValidationResult is the outcome of a full-graph sweep.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate sweeps the whole snapshot: every dependency must reference an
// existing node, and the graph must be acyclic.
func Validate(nodes map[int64]*Node) ValidationResult {
	var errs []string
	for _, id := range sortedIDs(nodes) {
		n := nodes[id]
		for _, dep := range n.Dependencies {
			if _, ok := nodes[dep]; !ok {
				errs = append(errs, fmt.Sprintf("puzzle %q (%d) depends on unknown puzzle id %d", n.Code, n.ID, dep))
			}
		}
	}
	if _, err := TopologicalSort(nodes); err != nil {
		errs = append(errs, err.Error())
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
