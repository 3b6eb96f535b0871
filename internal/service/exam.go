package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/pavelanni/examhelper/internal/generator"
	"github.com/pavelanni/examhelper/internal/model"
)

// ExamStores is the persistence ExamService works against.
type ExamStores interface {
	Transactor
	BankStore
	QuestionStore
	ExamStore
	SeedStore
}

type ExamService struct {
	store   ExamStores
	shuffle generator.Shuffler
	now     func() time.Time
	logger  *slog.Logger
}

// ExamOption configures an ExamService.
type ExamOption func(*ExamService)

// WithShuffler replaces the random source used for seed generation.
func WithShuffler(s generator.Shuffler) ExamOption {
	return func(es *ExamService) { es.shuffle = s }
}

// WithNow overrides the clock used for export timestamps.
func WithNow(now func() time.Time) ExamOption {
	return func(es *ExamService) { es.now = now }
}

func NewExamService(store ExamStores, logger *slog.Logger, opts ...ExamOption) *ExamService {
	s := &ExamService{
		store:   store,
		shuffle: generator.DefaultShuffler(),
		now:     time.Now,
		logger:  loggerOrDefault(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateResult is a persisted exam plus the blocks that could not be filled.
type GenerateResult struct {
	Exam     model.Exam            `json:"exam"`
	Warnings []generator.Underfill `json:"warnings"`
}

// GenerateFromSeed draws questions for every block of the seed and stores
// the result as a new exam. Short blocks are reported, not rejected.
func (s *ExamService) GenerateFromSeed(ctx context.Context, seedID, name string) (GenerateResult, error) {
	name, err := requireName("name", name)
	if err != nil {
		return GenerateResult{}, err
	}
	seed, err := s.store.GetSeed(ctx, seedID)
	if err != nil {
		return GenerateResult{}, err
	}

	var pool []model.Question
	for _, bankID := range seed.BankIDs {
		qs, err := s.store.ListQuestionsByBank(ctx, bankID)
		if err != nil {
			return GenerateResult{}, fmt.Errorf("load bank %s: %w", bankID, err)
		}
		pool = append(pool, qs...)
	}

	res := generator.Select(pool, seed.QuestionBlocks, s.shuffle)
	for _, u := range res.Underfills {
		s.logger.Warn("exam seed block underfilled",
			"seed_id", seed.ID,
			"block", u.BlockIndex+1,
			"block_id", u.BlockID,
			"tags", u.Tags,
			"requested", u.Requested,
			"picked", u.Picked)
	}

	exam, err := s.store.CreateExam(ctx, model.Exam{
		Name:        name,
		BankIDs:     slices.Clone(seed.BankIDs),
		QuestionIDs: res.QuestionIDs,
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("save generated exam: %w", err)
	}
	s.logger.Info("generated exam from seed",
		"seed_id", seed.ID, "exam_id", exam.ID, "pool", len(pool), "questions", len(exam.QuestionIDs))

	warnings := res.Underfills
	if warnings == nil {
		warnings = []generator.Underfill{}
	}
	return GenerateResult{Exam: exam, Warnings: warnings}, nil
}

// CreateManualExam creates an exam with no questions for hand curation.
func (s *ExamService) CreateManualExam(ctx context.Context, name string, bankIDs []string) (model.Exam, error) {
	name, err := requireName("name", name)
	if err != nil {
		return model.Exam{}, err
	}
	return s.store.CreateExam(ctx, model.Exam{
		Name:        name,
		BankIDs:     slices.Clone(bankIDs),
		QuestionIDs: []string{},
	})
}

// UpdateExamQuestions replaces the exam's question list.
func (s *ExamService) UpdateExamQuestions(ctx context.Context, examID string, questionIDs []string) error {
	if questionIDs == nil {
		questionIDs = []string{}
	}
	return s.store.UpdateExam(ctx, examID, model.ExamPatch{QuestionIDs: slices.Clone(questionIDs)})
}

// AddQuestions appends ids the exam does not already hold, keeping their order.
func (s *ExamService) AddQuestions(ctx context.Context, examID string, questionIDs []string) (model.Exam, error) {
	var out model.Exam
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.store.GetExam(ctx, examID)
		if err != nil {
			return err
		}
		ids := slices.Clone(e.QuestionIDs)
		for _, id := range questionIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		if err := s.store.UpdateExam(ctx, examID, model.ExamPatch{QuestionIDs: ids}); err != nil {
			return err
		}
		out, err = s.store.GetExam(ctx, examID)
		return err
	})
	return out, err
}

// RemoveQuestions drops every occurrence of the given ids from the exam.
func (s *ExamService) RemoveQuestions(ctx context.Context, examID string, questionIDs []string) (model.Exam, error) {
	var out model.Exam
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.store.GetExam(ctx, examID)
		if err != nil {
			return err
		}
		ids := slices.DeleteFunc(slices.Clone(e.QuestionIDs), func(id string) bool {
			return slices.Contains(questionIDs, id)
		})
		if err := s.store.UpdateExam(ctx, examID, model.ExamPatch{QuestionIDs: ids}); err != nil {
			return err
		}
		out, err = s.store.GetExam(ctx, examID)
		return err
	})
	return out, err
}

// RenameExam changes an exam's display name.
func (s *ExamService) RenameExam(ctx context.Context, examID, name string) error {
	name, err := requireName("name", name)
	if err != nil {
		return err
	}
	return s.store.UpdateExam(ctx, examID, model.ExamPatch{Name: &name})
}

// DeleteExam removes the exam record. Its questions stay in their banks.
func (s *ExamService) DeleteExam(ctx context.Context, examID string) error {
	return s.store.DeleteExam(ctx, examID)
}

func (s *ExamService) ListExams(ctx context.Context) ([]model.Exam, error) {
	return s.store.ListExams(ctx)
}

func (s *ExamService) GetExam(ctx context.Context, examID string) (model.Exam, error) {
	return s.store.GetExam(ctx, examID)
}

// GetExamDetailsWithQuestions resolves the exam's question ids in their
// stored order. Ids with no matching question are skipped; an id listed more
// than once appears once per listing. Bank names are for display only.
func (s *ExamService) GetExamDetailsWithQuestions(ctx context.Context, examID string) (model.ExamDetails, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return model.ExamDetails{}, err
	}
	found, err := s.store.GetQuestionsByIDs(ctx, exam.QuestionIDs)
	if err != nil {
		return model.ExamDetails{}, fmt.Errorf("resolve exam questions: %w", err)
	}
	byID := make(map[string]model.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	questions := make([]model.Question, 0, len(exam.QuestionIDs))
	for _, id := range exam.QuestionIDs {
		if q, ok := byID[id]; ok {
			questions = append(questions, q)
		}
	}
	if missing := len(exam.QuestionIDs) - len(questions); missing > 0 {
		s.logger.Debug("exam references missing questions", "exam_id", exam.ID, "missing", missing)
	}

	banks, err := s.store.ListBanks(ctx)
	if err != nil {
		return model.ExamDetails{}, fmt.Errorf("list banks: %w", err)
	}
	banksMap := make(map[string]string, len(banks))
	for _, b := range banks {
		banksMap[b.ID] = b.Name
	}
	return model.ExamDetails{Exam: exam, Questions: questions, BanksMap: banksMap}, nil
}

// GetAvailableQuestionsForExam lists the questions of the exam's banks, each
// once. It is for picking new questions, not for resolving existing ones.
func (s *ExamService) GetAvailableQuestionsForExam(ctx context.Context, examID string) ([]model.Question, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	return s.questionsOfBanks(ctx, exam.BankIDs)
}

func (s *ExamService) questionsOfBanks(ctx context.Context, bankIDs []string) ([]model.Question, error) {
	seen := make(map[string]struct{})
	out := []model.Question{}
	for _, bankID := range bankIDs {
		qs, err := s.store.ListQuestionsByBank(ctx, bankID)
		if err != nil {
			return nil, fmt.Errorf("load bank %s: %w", bankID, err)
		}
		for _, q := range qs {
			if _, ok := seen[q.ID]; ok {
				continue
			}
			seen[q.ID] = struct{}{}
			out = append(out, q)
		}
	}
	return out, nil
}

// AvailableQuestionsFilter narrows the question picker.
type AvailableQuestionsFilter struct {
	// Search matches title or content, case-insensitively.
	Search string
	// Tag must be carried exactly.
	Tag string
}

// SearchAvailableQuestions is GetAvailableQuestionsForExam without the
// questions already on the exam, narrowed by filter.
func (s *ExamService) SearchAvailableQuestions(ctx context.Context, examID string, filter AvailableQuestionsFilter) ([]model.Question, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	all, err := s.questionsOfBanks(ctx, exam.BankIDs)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	tag := filter.Tag
	return slices.DeleteFunc(all, func(q model.Question) bool {
		if slices.Contains(exam.QuestionIDs, q.ID) {
			return true
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(q.Title), search) &&
			!strings.Contains(strings.ToLower(q.Content), search) {
			return true
		}
		return tag != "" && !slices.Contains(q.Tags, tag)
	}), nil
}

// ExportExam builds the per-exam file from the resolved exam.
func (s *ExamService) ExportExam(ctx context.Context, examID string) (model.ExamExport, error) {
	details, err := s.GetExamDetailsWithQuestions(ctx, examID)
	if err != nil {
		return model.ExamExport{}, err
	}
	seen := make(map[string]struct{}, len(details.Questions))
	questions := slices.DeleteFunc(details.Questions, func(q model.Question) bool {
		_, dup := seen[q.ID]
		seen[q.ID] = struct{}{}
		return dup
	})
	return model.ExamExport{
		Exam:       &details.Exam,
		Questions:  questions,
		ExportedAt: isoNow(s.now),
		Version:    model.FormatVersion,
	}, nil
}
