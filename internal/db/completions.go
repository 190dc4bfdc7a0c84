package db

import (
	"database/sql"
	"fmt"
	"time"

	"huntcore/internal/model"
)

// InsertCompletion records a completion with a server-assigned timestamp.
// The (user, puzzle) pair is unique; a losing concurrent duplicate surfaces
// as ErrAlreadyExists through the primary-key constraint. The solution text,
// when present, is stored as a zstd-compressed blob.
func (db *DB) InsertCompletion(c *model.Completion) error {
	completedAt := time.Now().Unix()

	var solution interface{}
	if c.Solution != "" {
		solution = db.zenc.EncodeAll([]byte(c.Solution), nil)
	}

	_, err := db.exec(
		"INSERT INTO completions (user_id, puzzle_id, score, time_spent, solution, completed_at) VALUES (?, ?, ?, ?, ?, ?)",
		c.UserID, c.PuzzleID, nullableInt(c.Score), nullableInt(c.TimeSpent), solution, completedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	c.CompletedAt = time.Unix(completedAt, 0)
	return nil
}

// Completion retrieves a single completion row.
func (db *DB) Completion(userID, puzzleID int64) (*model.Completion, error) {
	row := db.queryRow(
		"SELECT user_id, puzzle_id, score, time_spent, solution, completed_at FROM completions WHERE user_id = ? AND puzzle_id = ?",
		userID, puzzleID,
	)
	c, err := db.scanCompletion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// UserCompletions lists a user's completions, most recent first.
func (db *DB) UserCompletions(userID int64) ([]model.Completion, error) {
	rows, err := db.query(
		"SELECT user_id, puzzle_id, score, time_spent, solution, completed_at FROM completions WHERE user_id = ? ORDER BY completed_at DESC, puzzle_id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := db.scanCompletion(rows.Scan)
		if err != nil {
			return nil, err
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

func (db *DB) scanCompletion(scan func(...interface{}) error) (*model.Completion, error) {
	var c model.Completion
	var score, timeSpent sql.NullInt64
	var solution []byte
	var completedAt int64
	if err := scan(&c.UserID, &c.PuzzleID, &score, &timeSpent, &solution, &completedAt); err != nil {
		return nil, err
	}
	if score.Valid {
		v := int(score.Int64)
		c.Score = &v
	}
	if timeSpent.Valid {
		v := int(timeSpent.Int64)
		c.TimeSpent = &v
	}
	if len(solution) > 0 {
		decoded, err := db.zdec.DecodeAll(solution, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing solution for user %d puzzle %d: %w", c.UserID, c.PuzzleID, err)
		}
		c.Solution = string(decoded)
	}
	c.CompletedAt = time.Unix(completedAt, 0)
	return &c, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
