package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

const examColumns = `id, name, bank_ids, question_ids, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (model.Exam, error) {
	var (
		e                  model.Exam
		banks, questionIDs string
	)
	if err := row.Scan(&e.ID, &e.Name, &banks, &questionIDs, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return e, err
	}
	var err error
	if e.BankIDs, err = decodeStrings(banks); err != nil {
		return e, fmt.Errorf("exam %s bank ids: %w", e.ID, err)
	}
	if e.QuestionIDs, err = decodeStrings(questionIDs); err != nil {
		return e, fmt.Errorf("exam %s question ids: %w", e.ID, err)
	}
	return e, nil
}

// CreateExam stores a new exam with a fresh id; created_at equals updated_at.
func (s *Store) CreateExam(ctx context.Context, e model.Exam) (model.Exam, error) {
	now := s.now()
	e.ID = s.newID()
	e.CreatedAt, e.UpdatedAt = now, now
	e.BankIDs = orEmpty(e.BankIDs)
	e.QuestionIDs = orEmpty(e.QuestionIDs)
	if err := s.SaveExam(ctx, e); err != nil {
		slog.Error("failed to create exam", "name", e.Name, "error", err)
		return model.Exam{}, err
	}
	slog.Info("created exam", "id", e.ID, "name", e.Name, "questions", len(e.QuestionIDs))
	return e, nil
}

// SaveExam inserts or overwrites an exam by id.
func (s *Store) SaveExam(ctx context.Context, e model.Exam) error {
	banks, err := encodeJSON(orEmpty(e.BankIDs))
	if err != nil {
		return err
	}
	questionIDs, err := encodeJSON(orEmpty(e.QuestionIDs))
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO exams (`+examColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, bank_ids = excluded.bank_ids,
		 question_ids = excluded.question_ids, created_at = excluded.created_at,
		 updated_at = excluded.updated_at`,
		e.ID, e.Name, banks, questionIDs, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// GetExam returns an exam by id.
func (s *Store) GetExam(ctx context.Context, id string) (model.Exam, error) {
	e, err := scanExam(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exam{}, apperrors.NotFound("exam", id)
	}
	return e, err
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams(ctx context.Context) ([]model.Exam, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+examColumns+` FROM exams ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// UpdateExam applies the non-nil fields of patch and refreshes updated_at.
func (s *Store) UpdateExam(ctx context.Context, id string, patch model.ExamPatch) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.GetExam(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			e.Name = *patch.Name
		}
		if patch.BankIDs != nil {
			e.BankIDs = patch.BankIDs
		}
		if patch.QuestionIDs != nil {
			e.QuestionIDs = patch.QuestionIDs
		}
		e.UpdatedAt = s.now()
		return s.SaveExam(ctx, e)
	})
}

// DeleteExam removes an exam record only.
func (s *Store) DeleteExam(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res, "exam", id); err != nil {
		return err
	}
	slog.Info("deleted exam", "id", id)
	return nil
}
