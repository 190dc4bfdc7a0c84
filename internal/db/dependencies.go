package db

import (
	"database/sql"
	"fmt"
	"time"

	"huntcore/internal/model"
)

// Edges returns every persisted dependency edge.
func (db *DB) Edges() ([]model.DependencyEdge, error) {
	rows, err := db.query(
		"SELECT puzzle_id, prerequisite_id, is_required, created_at FROM puzzle_dependencies ORDER BY puzzle_id, prerequisite_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []model.DependencyEdge
	for rows.Next() {
		var e model.DependencyEdge
		var createdAt int64
		if err := rows.Scan(&e.PuzzleID, &e.PrerequisiteID, &e.IsRequired, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Edge retrieves a single dependency edge by its pair.
func (db *DB) Edge(puzzleID, prerequisiteID int64) (*model.DependencyEdge, error) {
	var e model.DependencyEdge
	var createdAt int64
	err := db.queryRow(
		"SELECT puzzle_id, prerequisite_id, is_required, created_at FROM puzzle_dependencies WHERE puzzle_id = ? AND prerequisite_id = ?",
		puzzleID, prerequisiteID,
	).Scan(&e.PuzzleID, &e.PrerequisiteID, &e.IsRequired, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	return &e, nil
}

// InsertEdge persists one dependency edge. Returns ErrAlreadyExists when the
// pair is already present.
func (db *DB) InsertEdge(puzzleID, prerequisiteID int64, isRequired bool) error {
	var required int
	if isRequired {
		required = 1
	}
	_, err := db.exec(
		"INSERT INTO puzzle_dependencies (puzzle_id, prerequisite_id, is_required, created_at) VALUES (?, ?, ?, ?)",
		puzzleID, prerequisiteID, required, time.Now().Unix(),
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

// InsertEdges persists a batch of dependency edges in a single transaction.
// Either every edge is committed or none are.
func (db *DB) InsertEdges(edges []model.DependencyEdge) error {
	if len(edges) == 0 {
		return nil
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	q := "INSERT INTO puzzle_dependencies (puzzle_id, prerequisite_id, is_required, created_at) VALUES (?, ?, ?, ?)"
	if db.driver == DriverPostgres {
		q = convertPlaceholders(q)
	}
	now := time.Now().Unix()
	for _, e := range edges {
		var required int
		if e.IsRequired {
			required = 1
		}
		if _, err := tx.Exec(q, e.PuzzleID, e.PrerequisiteID, required, now); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("inserting edge %d -> %d: %w", e.PuzzleID, e.PrerequisiteID, err)
		}
	}

	return tx.Commit()
}

// DeleteEdge removes a dependency edge. Returns ErrNotFound when the pair
// does not exist.
func (db *DB) DeleteEdge(puzzleID, prerequisiteID int64) error {
	res, err := db.exec(
		"DELETE FROM puzzle_dependencies WHERE puzzle_id = ? AND prerequisite_id = ?",
		puzzleID, prerequisiteID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
