package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	b := mustBank(t, src, "B")
	q := mustQuestion(t, src, b.ID, "Q", "x")
	mustSeed(t, src, []string{b.ID}, model.QuestionBlock{ID: "k", NumberOfQuestions: 1})
	_, err := src.CreateExam(ctx, model.Exam{Name: "E", BankIDs: []string{b.ID}, QuestionIDs: []string{q.ID}})
	require.NoError(t, err)

	data := NewDataService(src, discardLogger())
	data.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	backup, err := data.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AppName, backup.Metadata.AppName)
	assert.Equal(t, "1.0", backup.Metadata.Version)
	assert.Equal(t, "2024-03-01T10:00:00.000Z", backup.Metadata.ExportedAt)

	last, err := data.LastBackupAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, backup.Metadata.ExportedAt, last)

	dst := newTestStore(t)
	// A record that is not in the backup survives the restore.
	keep := mustBank(t, dst, "local")
	restore := NewDataService(dst, discardLogger())
	require.NoError(t, restore.Restore(ctx, backup))

	stats, err := restore.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Banks: 2, Questions: 1, Seeds: 1, Exams: 1}, stats)
	_, err = dst.GetBank(ctx, keep.ID)
	require.NoError(t, err)

	got, err := dst.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Tags, got.Tags)
	assert.Equal(t, q.Body, got.Body)
}

func TestRestoreRejectsForeignBackup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewDataService(st, discardLogger())

	for _, app := range []string{"", "SomethingElse", "examhelper"} {
		err := svc.Restore(ctx, model.Backup{
			Metadata: model.BackupMetadata{AppName: app, Version: "1.0"},
			Data:     model.BackupData{Banks: []model.Bank{{ID: "b", Name: "B"}}},
		})
		assert.True(t, apperrors.IsInvalidFormat(err), "appName %q: %v", app, err)
	}
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Banks)
}

func TestRestoreSkipsEmptyCollections(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewDataService(st, discardLogger())

	err := svc.Restore(ctx, model.Backup{
		Metadata: model.BackupMetadata{AppName: model.AppName, Version: "1.0"},
		Data:     model.BackupData{Banks: []model.Bank{{ID: "b", Name: "B", CreatedAt: 1, UpdatedAt: 1}}},
	})
	require.NoError(t, err)
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Banks: 1}, stats)
}

func TestRestoreRejectsRecordsWithoutID(t *testing.T) {
	ctx := context.Background()
	meta := model.BackupMetadata{AppName: model.AppName, Version: "1.0"}
	q := model.Question{BankID: "b", Title: "t", Tags: []string{}, Body: model.Essay{}}

	tests := []struct {
		name string
		data model.BackupData
		want string
	}{
		{"bank", model.BackupData{Banks: []model.Bank{{ID: "b", Name: "B"}, {Name: "C"}}}, "bank #2"},
		{"question", model.BackupData{Questions: []model.Question{q, q}}, "question #1"},
		{"exam", model.BackupData{Exams: []model.Exam{{Name: "E"}}}, "exam #1"},
		{"seed", model.BackupData{ExamSeeds: []model.ExamSeed{{Name: "S"}}}, "exam seed #1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestStore(t)
			svc := NewDataService(st, discardLogger())
			err := svc.Restore(ctx, model.Backup{Metadata: meta, Data: tt.data})
			require.Error(t, err)
			assert.True(t, apperrors.IsInvalidFormat(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)

			stats, err := svc.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, model.Stats{}, stats)
		})
	}
}
