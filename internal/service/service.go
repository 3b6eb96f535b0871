// Package service holds the exam-authoring operations on top of the store
// contracts: seed-driven generation, manual curation, the consistency
// resolver, import reconciliation, and the supporting CRUD and backup flows.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

// Transactor runs fn so that every store call made with the ctx it receives
// commits or rolls back together.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BankStore interface {
	ListBanks(ctx context.Context) ([]model.Bank, error)
	GetBank(ctx context.Context, id string) (model.Bank, error)
	CreateBank(ctx context.Context, name, description string) (model.Bank, error)
	UpdateBank(ctx context.Context, id, name, description string) error
	DeleteBank(ctx context.Context, id string) error
}

type QuestionStore interface {
	ListQuestionsByBank(ctx context.Context, bankID string) ([]model.Question, error)
	GetQuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error)
	GetQuestion(ctx context.Context, id string) (model.Question, error)
	CreateQuestion(ctx context.Context, q model.Question) (model.Question, error)
	SaveQuestion(ctx context.Context, q model.Question) error
	UpdateQuestion(ctx context.Context, id string, patch model.QuestionPatch) error
	DeleteQuestion(ctx context.Context, id string) error
	AddTag(ctx context.Context, id, tag string) error
	RemoveTag(ctx context.Context, id, tag string) error
	ListTags(ctx context.Context, bankID string) ([]string, error)
}

type ExamStore interface {
	ListExams(ctx context.Context) ([]model.Exam, error)
	GetExam(ctx context.Context, id string) (model.Exam, error)
	CreateExam(ctx context.Context, e model.Exam) (model.Exam, error)
	UpdateExam(ctx context.Context, id string, patch model.ExamPatch) error
	DeleteExam(ctx context.Context, id string) error
}

type SeedStore interface {
	ListSeeds(ctx context.Context) ([]model.ExamSeed, error)
	GetSeed(ctx context.Context, id string) (model.ExamSeed, error)
	CreateSeed(ctx context.Context, sd model.ExamSeed) (model.ExamSeed, error)
	UpdateSeed(ctx context.Context, id string, patch model.SeedPatch) error
	DeleteSeed(ctx context.Context, id string) error
}

// BackupStore reads and writes whole collections.
type BackupStore interface {
	ExportAll(ctx context.Context) (model.BackupData, error)
	RestoreAll(ctx context.Context, data model.BackupData) error
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (string, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// Repository is everything the services need from persistence.
// *store.Store implements it.
type Repository interface {
	Transactor
	BankStore
	QuestionStore
	ExamStore
	SeedStore
	BackupStore
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// check runs struct validation and converts failures to apperrors.ValidationErrors.
func check(v any) error {
	return apperrors.FromValidator(validate.Struct(v))
}

// requireName trims name and rejects it when empty.
func requireName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError(field, "is required")
	}
	return name, nil
}

// requireIDs rejects imported records without an id. Imports upsert by id,
// so id-less records would overwrite one another.
func requireIDs[T any](kind string, items []T, id func(T) string) error {
	for i, item := range items {
		if id(item) == "" {
			return apperrors.InvalidFormat("%s #%d has no id", kind, i+1)
		}
	}
	return nil
}

func questionID(q model.Question) string { return q.ID }

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// isoMillis matches the timestamps written by earlier versions of the tool.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func isoNow(now func() time.Time) string {
	return now().UTC().Format(isoMillis)
}
