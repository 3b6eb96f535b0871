package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelanni/examhelper/internal/model"
)

// ExportAll reads every collection for a backup.
func (s *Store) ExportAll(ctx context.Context) (model.BackupData, error) {
	var data model.BackupData
	var err error

	if data.Banks, err = s.ListBanks(ctx); err != nil {
		return data, fmt.Errorf("list banks: %w", err)
	}
	if data.Questions, err = s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY created_at, id`); err != nil {
		return data, fmt.Errorf("list questions: %w", err)
	}
	if data.Exams, err = s.ListExams(ctx); err != nil {
		return data, fmt.Errorf("list exams: %w", err)
	}
	if data.ExamSeeds, err = s.ListSeeds(ctx); err != nil {
		return data, fmt.Errorf("list exam seeds: %w", err)
	}
	return data, nil
}

// RestoreAll upserts every record of data by id in one transaction.
// Records not in data are left alone; empty collections are skipped.
func (s *Store) RestoreAll(ctx context.Context, data model.BackupData) error {
	err := s.WithTx(ctx, func(ctx context.Context) error {
		for _, b := range data.Banks {
			if err := s.SaveBank(ctx, b); err != nil {
				return fmt.Errorf("restore bank %s: %w", b.ID, err)
			}
		}
		for _, q := range data.Questions {
			if err := s.SaveQuestion(ctx, q); err != nil {
				return fmt.Errorf("restore question %s: %w", q.ID, err)
			}
		}
		for _, e := range data.Exams {
			if err := s.SaveExam(ctx, e); err != nil {
				return fmt.Errorf("restore exam %s: %w", e.ID, err)
			}
		}
		for _, sd := range data.ExamSeeds {
			if err := s.SaveSeed(ctx, sd); err != nil {
				return fmt.Errorf("restore exam seed %s: %w", sd.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("restored backup",
		"banks", len(data.Banks),
		"questions", len(data.Questions),
		"exams", len(data.Exams),
		"exam_seeds", len(data.ExamSeeds))
	return nil
}
