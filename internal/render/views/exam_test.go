package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pavelanni/examhelper/internal/i18n"
	"github.com/pavelanni/examhelper/internal/model"
)

func renderPage(t *testing.T, p Page) string {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	var buf bytes.Buffer
	if err := ExamPage(p).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestExamPage(t *testing.T) {
	p := Page{
		Name: "Quiz",
		Code: "abcd1234",
		Questions: []model.Question{
			{ID: "q1", Title: "Sky", Body: model.MultipleChoice{Choices: []string{"Blue", "Green"}}},
			{ID: "q2", Title: "Essay", Content: "Describe <rain>", Body: model.Essay{}},
		},
	}
	out := renderPage(t, p)
	for _, want := range []string{
		"<!doctype html>",
		`<div class="question" data-type="MULTIPLE_CHOICE">`,
		`<div class="question" data-type="ESSAY">`,
		"<li>B. Green</li>",
		"Describe &lt;rain&gt;",
		"Code: abcd1234",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if got := strings.Count(out, `<div class="essay">`); got != EssayLines {
		t.Errorf("essay lines = %d, want %d", got, EssayLines)
	}
	if strings.Contains(out, `class="key"`) {
		t.Error("answer key rendered without answers")
	}

	p.Answers = []string{"A", "Rain falls."}
	out = renderPage(t, p)
	if !strings.Contains(out, `<li class="correct">Rain falls.</li>`) {
		t.Error("answer key entry missing")
	}
}

func TestPrompt(t *testing.T) {
	if got := Prompt(model.Question{Title: "T", Content: "  "}); got != "T" {
		t.Errorf("Prompt(blank content) = %q", got)
	}
	if got := Prompt(model.Question{Title: "T", Content: "C"}); got != "C" {
		t.Errorf("Prompt = %q", got)
	}
}
