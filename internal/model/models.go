// Package model provides data models for the progression core.
package model

import "time"

// Puzzle represents a gated content item in the hunt.
type Puzzle struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Difficulty  int       `json:"difficulty"`
	Points      int       `json:"points"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// DependencyEdge records that Puzzle depends on Prerequisite. The edge set,
// read as a directed graph, must stay acyclic; only the progression service
// may create or remove edges.
type DependencyEdge struct {
	PuzzleID       int64     `json:"puzzle_id"`
	PrerequisiteID int64     `json:"prerequisite_id"`
	IsRequired     bool      `json:"is_required"`
	CreatedAt      time.Time `json:"created_at"`
}

// Completion is a user's record of finishing a puzzle. Immutable once
// created; unique per (user, puzzle).
type Completion struct {
	UserID      int64     `json:"user_id"`
	PuzzleID    int64     `json:"puzzle_id"`
	Score       *int      `json:"score,omitempty"`
	TimeSpent   *int      `json:"time_spent,omitempty"`
	Solution    string    `json:"solution,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// AccessDecision is the result of resolving whether a user may attempt a
// puzzle right now.
type AccessDecision struct {
	HasAccess              bool     `json:"has_access"`
	Puzzle                 *Puzzle  `json:"puzzle,omitempty"`
	MissingPrerequisites   []string `json:"missing_prerequisites"`
	CompletedPrerequisites []string `json:"completed_prerequisites"`
	Message                string   `json:"message"`
}

// Progress aggregates a user's standing across the active catalog.
type Progress struct {
	Completed     int      `json:"completed"`
	Total         int      `json:"total"`
	Available     int      `json:"available"`
	Percentage    int      `json:"percentage"`
	NextAvailable []Puzzle `json:"next_available"`
}

// GraphNode is one puzzle in a rendered dependency graph. Completed is only
// populated when the graph was resolved for a specific user.
type GraphNode struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	Completed *bool  `json:"completed,omitempty"`
}

// GraphEdge is oriented prerequisite -> dependent, i.e. "what unlocks what".
type GraphEdge struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// GraphView is the full dependency graph over active puzzles.
type GraphView struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// AuditEntry records an administrative or user mutation.
type AuditEntry struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Data       map[string]string `json:"data,omitempty"`
	Timestamp  time.Time         `json:"ts"`
}
