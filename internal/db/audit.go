package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"huntcore/internal/model"
)

// WriteAudit writes an audit log entry for a mutation.
func (db *DB) WriteAudit(action, targetType, targetID string, data map[string]string) error {
	id := uuid.New().String()
	dataJSON, _ := json.Marshal(data)
	_, err := db.exec(
		"INSERT INTO audit (id, action, target_type, target_id, data, ts) VALUES (?, ?, ?, ?, ?, ?)",
		id, action, targetType, targetID, string(dataJSON), time.Now().Unix(),
	)
	return err
}

// ListAudit lists the most recent audit entries.
func (db *DB) ListAudit(limit int) ([]model.AuditEntry, error) {
	rows, err := db.query(
		"SELECT id, action, target_type, target_id, data, ts FROM audit ORDER BY ts DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var ts int64
		var dataJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.TargetType, &e.TargetID, &dataJSON, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0)
		if dataJSON.Valid && dataJSON.String != "" {
			json.Unmarshal([]byte(dataJSON.String), &e.Data)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
