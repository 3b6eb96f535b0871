// Package render turns a resolved exam into printable documents: HTML,
// PDF (HTML printed by headless Chrome) and DOCX.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/render/views"
)

// Format is an output document type.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatPDF, FormatDOCX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown document format %q (want html, pdf or docx)", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/html; charset=utf-8"
	}
}

// Document is what gets printed.
type Document struct {
	Exam      model.Exam
	Questions []model.Question
	// AnswerKey appends the correct answers after the end marker.
	AnswerKey bool
}

// FromDetails builds a Document from the resolver output.
func FromDetails(d model.ExamDetails, answerKey bool) Document {
	return Document{Exam: d.Exam, Questions: d.Questions, AnswerKey: answerKey}
}

// Renderer writes a Document in any Format.
type Renderer struct {
	PDF PDFRenderer
}

func (r Renderer) Render(ctx context.Context, w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatHTML:
		return HTML(ctx, w, doc)
	case FormatPDF:
		return r.PDF.Render(ctx, w, doc)
	case FormatDOCX:
		return DOCX(ctx, w, doc)
	default:
		return fmt.Errorf("unknown document format %q", f)
	}
}

// ExamCode is the short code printed under the title.
func ExamCode(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// answerText is the answer key entry for q.
func answerText(q model.Question, trueLabel, falseLabel, none string) string {
	switch b := q.Body.(type) {
	case model.MultipleChoice:
		idx, ok := b.CorrectChoice()
		if !ok {
			return none
		}
		return views.Letter(idx)
	case model.TrueFalse:
		parts := make([]string, len(b.Choices))
		for i := range b.Choices {
			label := falseLabel
			if b.AnswerAt(i) {
				label = trueLabel
			}
			parts[i] = fmt.Sprintf("%d. %s", i+1, label)
		}
		return strings.Join(parts, "; ")
	case model.Essay:
		if strings.TrimSpace(b.Answer) == "" {
			return none
		}
		return b.Answer
	default:
		return none
	}
}

func unsupported(q model.Question) error {
	return fmt.Errorf("question %s: unsupported body %T", q.ID, q.Body)
}
