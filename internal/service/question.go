package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

type QuestionService struct {
	banks     BankStore
	questions QuestionStore
	logger    *slog.Logger
}

func NewQuestionService(banks BankStore, questions QuestionStore, logger *slog.Logger) *QuestionService {
	return &QuestionService{banks: banks, questions: questions, logger: loggerOrDefault(logger)}
}

type questionInput struct {
	BankID string `validate:"required"`
	Title  string `validate:"required,max=500"`
}

// checkBody rejects bodies that cannot be rendered or stored.
func checkBody(body model.QuestionBody) error {
	switch b := body.(type) {
	case model.MultipleChoice:
		if len(b.Choices) == 0 {
			return apperrors.NewValidationError("choices", "must have at least one choice")
		}
	case model.TrueFalse:
		if len(b.Choices) == 0 {
			return apperrors.NewValidationError("choices", "must have at least one statement")
		}
	case model.Essay:
	case nil:
		return apperrors.NewValidationError("type", "is required")
	default:
		return fmt.Errorf("unsupported question body %T", b)
	}
	return nil
}

// cleanTags drops empty and repeated tags. Tags are matched by exact
// string, so they are otherwise kept as given.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *QuestionService) ListByBank(ctx context.Context, bankID string) ([]model.Question, error) {
	if _, err := s.banks.GetBank(ctx, bankID); err != nil {
		return nil, err
	}
	return s.questions.ListQuestionsByBank(ctx, bankID)
}

func (s *QuestionService) Get(ctx context.Context, id string) (model.Question, error) {
	return s.questions.GetQuestion(ctx, id)
}

// Create adds a question to an existing bank.
func (s *QuestionService) Create(ctx context.Context, q model.Question) (model.Question, error) {
	q.Title = strings.TrimSpace(q.Title)
	if err := check(questionInput{BankID: q.BankID, Title: q.Title}); err != nil {
		return model.Question{}, err
	}
	if err := checkBody(q.Body); err != nil {
		return model.Question{}, err
	}
	if _, err := s.banks.GetBank(ctx, q.BankID); err != nil {
		return model.Question{}, err
	}
	q.Tags = cleanTags(q.Tags)
	return s.questions.CreateQuestion(ctx, q)
}

func (s *QuestionService) Update(ctx context.Context, id string, patch model.QuestionPatch) error {
	if patch.Title != nil {
		title, err := requireName("title", *patch.Title)
		if err != nil {
			return err
		}
		patch.Title = &title
	}
	if patch.Body != nil {
		if err := checkBody(patch.Body); err != nil {
			return err
		}
	}
	if patch.Tags != nil {
		patch.Tags = cleanTags(patch.Tags)
	}
	return s.questions.UpdateQuestion(ctx, id, patch)
}

func (s *QuestionService) Delete(ctx context.Context, id string) error {
	return s.questions.DeleteQuestion(ctx, id)
}

// SetTags replaces the question's tags.
func (s *QuestionService) SetTags(ctx context.Context, id string, tags []string) error {
	return s.questions.UpdateQuestion(ctx, id, model.QuestionPatch{Tags: cleanTags(tags)})
}

func (s *QuestionService) AddTag(ctx context.Context, id, tag string) error {
	if strings.TrimSpace(tag) == "" {
		return apperrors.NewValidationError("tag", "is required")
	}
	return s.questions.AddTag(ctx, id, tag)
}

func (s *QuestionService) RemoveTag(ctx context.Context, id, tag string) error {
	return s.questions.RemoveTag(ctx, id, tag)
}

// Tags lists the distinct tags of a bank, or of every bank when bankID is empty.
func (s *QuestionService) Tags(ctx context.Context, bankID string) ([]string, error) {
	return s.questions.ListTags(ctx, bankID)
}
