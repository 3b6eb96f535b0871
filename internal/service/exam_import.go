package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

// ImportExam stores an exported exam file. Questions are upserted as they
// are, keeping their ids and bank ids. The exam itself is always created
// anew, so importing the same file twice leaves two exams. Nothing is
// written when any step fails.
func (s *ExamService) ImportExam(ctx context.Context, payload model.ExamExport) (model.Exam, error) {
	if payload.Exam == nil {
		return model.Exam{}, apperrors.InvalidFormat("exam file has no exam")
	}
	if payload.Questions == nil {
		return model.Exam{}, apperrors.InvalidFormat("exam file has no questions")
	}
	if err := requireIDs("question", payload.Questions, questionID); err != nil {
		return model.Exam{}, err
	}

	var created model.Exam
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		for _, q := range payload.Questions {
			if err := s.store.SaveQuestion(ctx, q); err != nil {
				return fmt.Errorf("import question %s: %w", q.ID, err)
			}
		}
		var err error
		created, err = s.store.CreateExam(ctx, model.Exam{
			Name:        payload.Exam.Name + model.ImportedSuffix,
			BankIDs:     slices.Clone(payload.Exam.BankIDs),
			QuestionIDs: slices.Clone(payload.Exam.QuestionIDs),
		})
		return err
	})
	if err != nil {
		return model.Exam{}, err
	}
	s.logger.Info("imported exam",
		"source_id", payload.Exam.ID, "exam_id", created.ID, "questions", len(payload.Questions))
	return created, nil
}
