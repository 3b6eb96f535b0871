package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/store"
)

// DataService handles whole-database backup and restore.
type DataService struct {
	store  BackupStore
	now    func() time.Time
	logger *slog.Logger
}

func NewDataService(store BackupStore, logger *slog.Logger) *DataService {
	return &DataService{store: store, now: time.Now, logger: loggerOrDefault(logger)}
}

// Backup snapshots every collection.
func (s *DataService) Backup(ctx context.Context) (model.Backup, error) {
	data, err := s.store.ExportAll(ctx)
	if err != nil {
		return model.Backup{}, fmt.Errorf("export data: %w", err)
	}
	exportedAt := isoNow(s.now)
	if err := s.store.SetMetadata(ctx, store.MetaLastBackupAt, exportedAt); err != nil {
		s.logger.Warn("failed to record backup time", "error", err)
	}
	s.logger.Info("created backup",
		"banks", len(data.Banks), "questions", len(data.Questions),
		"exams", len(data.Exams), "exam_seeds", len(data.ExamSeeds))
	return model.Backup{
		Metadata: model.BackupMetadata{
			Version:    model.FormatVersion,
			ExportedAt: exportedAt,
			AppName:    model.AppName,
		},
		Data: data,
	}, nil
}

// Restore upserts every record of a backup written by this tool. Records
// missing from the backup are kept. The restore is all or nothing.
func (s *DataService) Restore(ctx context.Context, b model.Backup) error {
	if b.Metadata.AppName != model.AppName {
		return apperrors.InvalidFormat("not an %s backup (appName %q)", model.AppName, b.Metadata.AppName)
	}
	if err := checkBackupIDs(b.Data); err != nil {
		return err
	}
	if err := s.store.RestoreAll(ctx, b.Data); err != nil {
		return fmt.Errorf("restore data: %w", err)
	}
	if err := s.store.SetMetadata(ctx, store.MetaLastRestoreAt, isoNow(s.now)); err != nil {
		s.logger.Warn("failed to record restore time", "error", err)
	}
	return nil
}

func checkBackupIDs(d model.BackupData) error {
	if err := requireIDs("bank", d.Banks, func(b model.Bank) string { return b.ID }); err != nil {
		return err
	}
	if err := requireIDs("question", d.Questions, questionID); err != nil {
		return err
	}
	if err := requireIDs("exam", d.Exams, func(e model.Exam) string { return e.ID }); err != nil {
		return err
	}
	return requireIDs("exam seed", d.ExamSeeds, func(sd model.ExamSeed) string { return sd.ID })
}

// LastBackupAt returns when the last backup was taken, or "" if never.
func (s *DataService) LastBackupAt(ctx context.Context) (string, error) {
	return s.store.GetMetadata(ctx, store.MetaLastBackupAt)
}

// Stats returns the dashboard counters.
func (s *DataService) Stats(ctx context.Context) (model.Stats, error) {
	return s.store.Stats(ctx)
}
