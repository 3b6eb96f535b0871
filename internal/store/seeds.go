package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

const seedColumns = `id, name, description, bank_ids, question_blocks, created_at, updated_at`

func scanSeed(row interface{ Scan(...any) error }) (model.ExamSeed, error) {
	var (
		sd            model.ExamSeed
		banks, blocks string
	)
	if err := row.Scan(&sd.ID, &sd.Name, &sd.Description, &banks, &blocks, &sd.CreatedAt, &sd.UpdatedAt); err != nil {
		return sd, err
	}
	var err error
	if sd.BankIDs, err = decodeStrings(banks); err != nil {
		return sd, fmt.Errorf("seed %s bank ids: %w", sd.ID, err)
	}
	sd.QuestionBlocks = []model.QuestionBlock{}
	if err := json.Unmarshal([]byte(blocks), &sd.QuestionBlocks); err != nil {
		return sd, fmt.Errorf("seed %s blocks: %w", sd.ID, err)
	}
	for i := range sd.QuestionBlocks {
		sd.QuestionBlocks[i].Tags = orEmpty(sd.QuestionBlocks[i].Tags)
	}
	return sd, nil
}

// CreateSeed stores a new seed with a fresh id and timestamps.
func (s *Store) CreateSeed(ctx context.Context, sd model.ExamSeed) (model.ExamSeed, error) {
	now := s.now()
	sd.ID = s.newID()
	sd.CreatedAt, sd.UpdatedAt = now, now
	if err := s.SaveSeed(ctx, sd); err != nil {
		return model.ExamSeed{}, err
	}
	return sd, nil
}

// SaveSeed inserts or overwrites a seed by id.
func (s *Store) SaveSeed(ctx context.Context, sd model.ExamSeed) error {
	banks, err := encodeJSON(orEmpty(sd.BankIDs))
	if err != nil {
		return err
	}
	blocks := sd.QuestionBlocks
	if blocks == nil {
		blocks = []model.QuestionBlock{}
	}
	rawBlocks, err := encodeJSON(blocks)
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx,
		`INSERT INTO exam_seeds (`+seedColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description,
		 bank_ids = excluded.bank_ids, question_blocks = excluded.question_blocks,
		 created_at = excluded.created_at, updated_at = excluded.updated_at`,
		sd.ID, sd.Name, sd.Description, banks, rawBlocks, sd.CreatedAt, sd.UpdatedAt,
	)
	return err
}

// GetSeed returns a seed by id.
func (s *Store) GetSeed(ctx context.Context, id string) (model.ExamSeed, error) {
	sd, err := scanSeed(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+seedColumns+` FROM exam_seeds WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ExamSeed{}, apperrors.NotFound("exam seed", id)
	}
	return sd, err
}

// ListSeeds returns all seeds, newest first.
func (s *Store) ListSeeds(ctx context.Context) ([]model.ExamSeed, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+seedColumns+` FROM exam_seeds ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seeds := []model.ExamSeed{}
	for rows.Next() {
		sd, err := scanSeed(rows)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, sd)
	}
	return seeds, rows.Err()
}

// UpdateSeed applies the non-nil fields of patch and refreshes updated_at.
func (s *Store) UpdateSeed(ctx context.Context, id string, patch model.SeedPatch) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		sd, err := s.GetSeed(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			sd.Name = *patch.Name
		}
		if patch.Description != nil {
			sd.Description = *patch.Description
		}
		if patch.BankIDs != nil {
			sd.BankIDs = patch.BankIDs
		}
		if patch.QuestionBlocks != nil {
			sd.QuestionBlocks = patch.QuestionBlocks
		}
		sd.UpdatedAt = s.now()
		return s.SaveSeed(ctx, sd)
	})
}

// DeleteSeed removes a seed.
func (s *Store) DeleteSeed(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM exam_seeds WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "exam seed", id)
}
