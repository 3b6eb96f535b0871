package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/examhelper/internal/i18n"
	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/render/views"
)

func testDoc() Document {
	return Document{
		Exam: model.Exam{
			ID:        "3f2a9c1e-77aa-4b1c-9d11-0123456789ab",
			Name:      "Midterm <Physics & Maths>",
			CreatedAt: time.Date(2024, 3, 5, 12, 0, 0, 0, time.Local).UnixMilli(),
		},
		Questions: []model.Question{
			{ID: "q1", Title: "Capital", Content: "Capital of France?",
				Body: model.MultipleChoice{Choices: []string{"Paris", "Rome", "Oslo"}, Answer: 0}},
			{ID: "q2", Title: "Broken", Content: "Pick one",
				Body: model.MultipleChoice{Choices: []string{"x"}, Answer: 9}},
			{ID: "q3", Title: "Facts",
				Body: model.TrueFalse{Choices: []string{"Water boils at 100C", "Ice is hot"}, Answers: []bool{true}}},
			{ID: "q4", Title: "Why", Content: "Explain gravity.", Body: model.Essay{Answer: "Mass attracts mass."}},
		},
	}
}

func ctxFor(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	return i18n.WithLanguage(context.Background(), lang)
}

func TestHTML(t *testing.T) {
	ctx := ctxFor(t, "en")
	var buf bytes.Buffer
	if err := HTML(ctx, &buf, testDoc()); err != nil {
		t.Fatalf("HTML: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<html lang="en">`,
		"Midterm &lt;Physics &amp; Maths&gt;",
		"Code: 3f2a9c1e",
		"Created: Mar 5, 2024",
		"4 questions",
		"Question 1:</span> Capital of France?",
		"<li>A. Paris</li>", "<li>B. Rome</li>", "<li>C. Oslo</li>",
		"Question 3:</span> Facts",
		"<th class=\"c\">True</th>", "<th class=\"c\">False</th>",
		"Water boils at 100C",
		`<div class="essay">`,
		"--- END ---",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(out, "Answer key") {
		t.Error("answer key rendered without being requested")
	}
	if strings.Contains(out, "<Physics") {
		t.Error("exam name was not escaped")
	}
}

func TestHTMLAnswerKey(t *testing.T) {
	ctx := ctxFor(t, "en")
	doc := testDoc()
	doc.AnswerKey = true

	var buf bytes.Buffer
	if err := HTML(ctx, &buf, doc); err != nil {
		t.Fatalf("HTML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Answer key",
		`<li class="correct">A</li>`,
		`<li class="correct">(no answer provided)</li>`,
		`<li class="correct">1. True; 2. False</li>`,
		"Mass attracts mass.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("answer key missing %q", want)
		}
	}
	if end, key := strings.Index(out, "--- END ---"), strings.Index(out, "Answer key"); key < end {
		t.Error("answer key should follow the end marker")
	}
}

func TestHTMLVietnamese(t *testing.T) {
	ctx := ctxFor(t, "vi")
	var buf bytes.Buffer
	if err := HTML(ctx, &buf, testDoc()); err != nil {
		t.Fatalf("HTML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Mã đề: 3f2a9c1e", "Ngày tạo: 05/03/2024", "Câu 1:", "Đúng", "Sai", "--- HẾT ---"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestHTMLRejectsMissingBody(t *testing.T) {
	ctx := ctxFor(t, "en")
	doc := testDoc()
	doc.Questions = append(doc.Questions, model.Question{ID: "bad"})
	if err := HTML(ctx, io.Discard, doc); err == nil {
		t.Fatal("expected error for question without body")
	}
}

func TestDOCX(t *testing.T) {
	ctx := ctxFor(t, "en")
	doc := testDoc()
	doc.AnswerKey = true

	var buf bytes.Buffer
	if err := DOCX(ctx, &buf, doc); err != nil {
		t.Fatalf("DOCX: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	parts := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		parts[f.Name] = string(data)
	}
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/styles.xml", "word/document.xml"} {
		if _, ok := parts[name]; !ok {
			t.Errorf("docx missing part %s", name)
		}
	}

	body := parts["word/document.xml"]
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		if _, err := dec.Token(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("document.xml is not well-formed: %v", err)
		}
	}

	for _, want := range []string{
		"Midterm &lt;Physics &amp; Maths&gt;",
		"Code: 3f2a9c1e - Created: Mar 5, 2024",
		"Question 1: ",
		"A. Paris", "C. Oslo",
		"<w:tbl>",
		`<w:tcW w:w="1020" w:type="dxa">`,
		"Ice is hot",
		"--- END ---",
		`<w:br w:type="page">`,
		"3. 1. True; 2. False",
		`<w:pgSz w:w="11906" w:h="16838">`,
		`<w:pgMar w:top="850" w:left="850" w:bottom="850" w:right="850"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
	if !strings.HasSuffix(body, "</w:sectPr></w:body></w:document>") {
		t.Error("section properties should close the document body")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"html", FormatHTML, false},
		{" PDF ", FormatPDF, false},
		{"Docx", FormatDOCX, false},
		{"odt", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestExamCodeAndLetter(t *testing.T) {
	if got := ExamCode("abc"); got != "abc" {
		t.Errorf("ExamCode(short) = %q", got)
	}
	if got := ExamCode("0123456789"); got != "01234567" {
		t.Errorf("ExamCode = %q", got)
	}
	if got := views.Letter(0) + views.Letter(25) + views.Letter(26); got != "AZ27" {
		t.Errorf("Letter = %q", got)
	}
}

func TestPDF(t *testing.T) {
	var chrome string
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			chrome = p
			break
		}
	}
	if chrome == "" {
		t.Skip("no Chrome or Chromium binary found")
	}

	ctx := ctxFor(t, "en")
	var buf bytes.Buffer
	r := Renderer{PDF: PDFRenderer{ChromePath: chrome, Timeout: time.Minute}}
	if err := r.Render(ctx, &buf, FormatPDF, testDoc()); err != nil {
		t.Fatalf("Render pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output is not a PDF, starts with %q", buf.Bytes()[:min(8, buf.Len())])
	}
}
