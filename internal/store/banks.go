package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

const bankColumns = `id, name, description, created_at, updated_at`

func scanBank(row interface{ Scan(...any) error }) (model.Bank, error) {
	var b model.Bank
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateBank inserts a new bank with a fresh id.
func (s *Store) CreateBank(ctx context.Context, name, description string) (model.Bank, error) {
	now := s.now()
	b := model.Bank{ID: s.newID(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	if err := s.SaveBank(ctx, b); err != nil {
		slog.Error("failed to create bank", "name", name, "error", err)
		return model.Bank{}, err
	}
	slog.Info("created bank", "id", b.ID, "name", name)
	return b, nil
}

// SaveBank inserts or overwrites a bank by id.
func (s *Store) SaveBank(ctx context.Context, b model.Bank) error {
	_, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO banks (`+bankColumns+`) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description,
		 created_at = excluded.created_at, updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Description, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// GetBank returns a bank by id.
func (s *Store) GetBank(ctx context.Context, id string) (model.Bank, error) {
	b, err := scanBank(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+bankColumns+` FROM banks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bank{}, apperrors.NotFound("bank", id)
	}
	return b, err
}

// ListBanks returns all banks, newest first.
func (s *Store) ListBanks(ctx context.Context) ([]model.Bank, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+bankColumns+` FROM banks ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	banks := []model.Bank{}
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

// UpdateBank changes a bank's name and description.
func (s *Store) UpdateBank(ctx context.Context, id, name, description string) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE banks SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		name, description, s.now(), id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, "bank", id)
}

// DeleteBank removes a bank and all of its questions atomically.
// Exams referencing those questions are left as they are.
func (s *Store) DeleteBank(ctx context.Context, id string) error {
	var removed int64
	err := s.WithTx(ctx, func(ctx context.Context) error {
		res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM questions WHERE bank_id = ?`, id)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		res, err = s.conn(ctx).ExecContext(ctx, `DELETE FROM banks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(res, "bank", id)
	})
	if err != nil {
		return err
	}
	slog.Info("deleted bank", "id", id, "questions_removed", removed)
	return nil
}

func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound(resource, id)
	}
	return nil
}
