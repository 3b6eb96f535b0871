package render

import (
	"context"
	"io"

	"github.com/pavelanni/examhelper/internal/i18n"
	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/render/views"
)

// page resolves doc into the view model of the exam page.
func page(ctx context.Context, doc Document) (views.Page, error) {
	for _, q := range doc.Questions {
		switch q.Body.(type) {
		case model.MultipleChoice, model.TrueFalse, model.Essay:
		default:
			return views.Page{}, unsupported(q)
		}
	}
	p := views.Page{
		Name:      doc.Exam.Name,
		Code:      ExamCode(doc.Exam.ID),
		CreatedAt: doc.Exam.CreatedAt,
		Questions: doc.Questions,
	}
	if doc.AnswerKey {
		p.Answers = answerKey(ctx, doc.Questions)
	}
	return p, nil
}

// answerKey lists the answer key entries of questions in order.
func answerKey(ctx context.Context, questions []model.Question) []string {
	trueLabel, falseLabel := i18n.T(ctx, "DocTrue"), i18n.T(ctx, "DocFalse")
	none := i18n.T(ctx, "DocNoAnswer")
	answers := make([]string, len(questions))
	for i, q := range questions {
		answers[i] = answerText(q, trueLabel, falseLabel, none)
	}
	return answers
}

// HTML writes the exam page to w.
func HTML(ctx context.Context, w io.Writer, doc Document) error {
	p, err := page(ctx, doc)
	if err != nil {
		return err
	}
	return views.ExamPage(p).Render(ctx, w)
}
