package db

import (
	"database/sql"
	"time"

	"huntcore/internal/model"
)

// CreatePuzzle inserts a new puzzle. Returns ErrAlreadyExists when the code
// is already taken.
func (db *DB) CreatePuzzle(p *model.Puzzle) (*model.Puzzle, error) {
	var active int
	if p.IsActive {
		active = 1
	}
	now := time.Now().Unix()

	if db.driver == DriverPostgres {
		var id int64
		err := db.queryRow(
			"INSERT INTO puzzles (code, title, description, difficulty, points, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id",
			p.Code, p.Title, p.Description, p.Difficulty, p.Points, active, now,
		).Scan(&id)
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		if err != nil {
			return nil, err
		}
		return db.PuzzleByID(id)
	}

	res, err := db.exec(
		"INSERT INTO puzzles (code, title, description, difficulty, points, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		p.Code, p.Title, p.Description, p.Difficulty, p.Points, active, now,
	)
	if isUniqueViolation(err) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.PuzzleByID(id)
}

// PuzzleByID retrieves a puzzle by ID.
func (db *DB) PuzzleByID(id int64) (*model.Puzzle, error) {
	return db.scanPuzzle(db.queryRow(
		"SELECT id, code, title, description, difficulty, points, is_active, created_at FROM puzzles WHERE id = ?",
		id,
	))
}

// PuzzleByCode retrieves a puzzle by its unique code.
func (db *DB) PuzzleByCode(code string) (*model.Puzzle, error) {
	return db.scanPuzzle(db.queryRow(
		"SELECT id, code, title, description, difficulty, points, is_active, created_at FROM puzzles WHERE code = ?",
		code,
	))
}

func (db *DB) scanPuzzle(row *sql.Row) (*model.Puzzle, error) {
	var p model.Puzzle
	var createdAt int64
	err := row.Scan(&p.ID, &p.Code, &p.Title, &p.Description, &p.Difficulty, &p.Points, &p.IsActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// UpdatePuzzle overwrites the mutable fields of an existing puzzle. Returns
// ErrAlreadyExists if the new code collides, ErrNotFound for an unknown id.
func (db *DB) UpdatePuzzle(p *model.Puzzle) error {
	var active int
	if p.IsActive {
		active = 1
	}
	res, err := db.exec(
		"UPDATE puzzles SET code = ?, title = ?, description = ?, difficulty = ?, points = ?, is_active = ? WHERE id = ?",
		p.Code, p.Title, p.Description, p.Difficulty, p.Points, active, p.ID,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
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

// ListPuzzles lists every puzzle, active or not, ordered by id.
func (db *DB) ListPuzzles() ([]model.Puzzle, error) {
	return db.listPuzzles(
		"SELECT id, code, title, description, difficulty, points, is_active, created_at FROM puzzles ORDER BY id",
	)
}

// ActivePuzzles lists the active catalog ordered by id.
func (db *DB) ActivePuzzles() ([]model.Puzzle, error) {
	return db.listPuzzles(
		"SELECT id, code, title, description, difficulty, points, is_active, created_at FROM puzzles WHERE is_active = 1 ORDER BY id",
	)
}

func (db *DB) listPuzzles(q string, args ...interface{}) ([]model.Puzzle, error) {
	rows, err := db.query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var puzzles []model.Puzzle
	for rows.Next() {
		var p model.Puzzle
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Code, &p.Title, &p.Description, &p.Difficulty, &p.Points, &p.IsActive, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		puzzles = append(puzzles, p)
	}
	return puzzles, rows.Err()
}
