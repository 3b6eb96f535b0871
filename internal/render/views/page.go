// Package views holds the templ components of the printable exam.
package views

import (
	"fmt"
	"strings"

	"github.com/pavelanni/examhelper/internal/model"
)

// Page is an exam resolved for printing.
type Page struct {
	Name      string
	Code      string
	CreatedAt int64
	Questions []model.Question
	// Answers holds one answer key entry per question. The key is printed
	// only when Answers is non-nil.
	Answers []string
}

// EssayLines is how many dotted answer lines an essay question gets.
const EssayLines = 2

// Dots is one dotted answer line.
const Dots = "..................................................................................................................................."

// Letter labels choice i as A, B, C...
func Letter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("%d", i+1)
}

// Prompt is the text shown after "Question N:". Content is the question
// proper; the title is used when there is no content.
func Prompt(q model.Question) string {
	if strings.TrimSpace(q.Content) != "" {
		return q.Content
	}
	return q.Title
}
