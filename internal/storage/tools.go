package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateTool persists rec, assigning an id and creation time when absent,
// and returns the stored record.
func (s *Store) CreateTool(rec ToolRecord) (ToolRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if len(rec.Answer) == 0 {
		rec.Answer = json.RawMessage("null")
	}
	if rec.Options == nil {
		rec.Options = []string{}
	}
	if !json.Valid(rec.Answer) {
		return ToolRecord{}, fmt.Errorf("answer is not valid JSON")
	}

	options, err := json.Marshal(rec.Options)
	if err != nil {
		return ToolRecord{}, fmt.Errorf("encoding options: %w", err)
	}

	_, err = s.db.Exec(s.rebind(`
		INSERT INTO tools (id, question_id, main_question, question, answer_json, type, options_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.QuestionID, rec.MainQuestion, rec.Question, string(rec.Answer), rec.Type, string(options), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return ToolRecord{}, fmt.Errorf("inserting tool record: %w", err)
	}
	rec.CreatedAt, _ = parseTime(formatTime(rec.CreatedAt))
	return rec, nil
}

// GetTool returns the record with the given id or ErrNotFound.
func (s *Store) GetTool(id string) (ToolRecord, error) {
	row := s.db.QueryRow(s.rebind(`
		SELECT id, question_id, main_question, question, answer_json, type, options_json, created_at
		FROM tools WHERE id = ?`), id)
	rec, err := scanTool(row)
	if err == sql.ErrNoRows {
		return ToolRecord{}, ErrNotFound
	}
	return rec, err
}

// ListTools returns all records, oldest first.
func (s *Store) ListTools() ([]ToolRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, question_id, main_question, question, answer_json, type, options_json, created_at
		FROM tools ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying tool records: %w", err)
	}
	defer rows.Close()

	out := []ToolRecord{}
	for rows.Next() {
		rec, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTool(sc scanner) (ToolRecord, error) {
	var rec ToolRecord
	var answer, options, createdAt string
	if err := sc.Scan(&rec.ID, &rec.QuestionID, &rec.MainQuestion, &rec.Question, &answer, &rec.Type, &options, &createdAt); err != nil {
		return ToolRecord{}, err
	}
	rec.Answer = json.RawMessage(answer)
	if err := json.Unmarshal([]byte(options), &rec.Options); err != nil {
		return ToolRecord{}, fmt.Errorf("decoding options for tool %s: %w", rec.ID, err)
	}
	if rec.Options == nil {
		rec.Options = []string{}
	}
	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return ToolRecord{}, fmt.Errorf("parsing created_at for tool %s: %w", rec.ID, err)
	}
	return rec, nil
}
