package render

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/fumiama/go-docx"

	"github.com/pavelanni/examhelper/internal/i18n"
	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/render/views"
)

// A4 with 15mm margins, in twentieths of a point.
const (
	pageWidth   = 11906
	pageHeight  = 16838
	pageMargin  = 850
	textWidth   = pageWidth - 2*pageMargin
	choiceInset = 720
	borderColor = "CCCCCC"
	numberColor = "2563EB"
)

// True/false table columns: number, statement, true, false.
var tfColumns = []int64{textWidth / 10, textWidth - textWidth/10 - 2*(textWidth*3/20), textWidth * 3 / 20, textWidth * 3 / 20}

// text appends a run whose leading and trailing spaces survive.
func text(p *docx.Paragraph, s string) *docx.Run {
	r := p.AddText(s)
	for _, c := range r.Children {
		if t, ok := c.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
	return r
}

func spacing(p *docx.Paragraph, before int) *docx.Paragraph {
	if p.Properties == nil {
		p.Properties = &docx.ParagraphProperties{}
	}
	p.Properties.Spacing = &docx.Spacing{Before: before}
	return p
}

func indent(p *docx.Paragraph, left int) *docx.Paragraph {
	if p.Properties == nil {
		p.Properties = &docx.ParagraphProperties{}
	}
	p.Properties.Ind = &docx.Ind{Left: left}
	return p
}

func cell(c *docx.WTableCell, s string, bold, center bool) {
	p := c.AddParagraph()
	if center {
		p.Justification("center")
	}
	r := text(p, s)
	if bold {
		r.Bold()
	}
}

func trueFalseTable(ctx context.Context, d *docx.Docx, tf model.TrueFalse) {
	rows := make([]int64, len(tf.Choices)+1)
	tbl := d.AddTableTwips(rows, tfColumns, textWidth, &docx.APITableBorderColors{
		Top: borderColor, Left: borderColor, Bottom: borderColor, Right: borderColor,
		InsideH: borderColor, InsideV: borderColor,
	})

	head := tbl.TableRows[0].TableCells
	cell(head[0], i18n.T(ctx, "DocStatementNo"), true, true)
	cell(head[1], i18n.T(ctx, "DocStatement"), true, false)
	cell(head[2], i18n.T(ctx, "DocTrue"), true, true)
	cell(head[3], i18n.T(ctx, "DocFalse"), true, true)
	for i, c := range tf.Choices {
		row := tbl.TableRows[i+1].TableCells
		cell(row[0], strconv.Itoa(i+1), false, true)
		cell(row[1], c, false, false)
		cell(row[2], "", false, true)
		cell(row[3], "", false, true)
	}
	d.AddParagraph()
}

// DOCX writes the exam as a Word document.
func DOCX(ctx context.Context, w io.Writer, doc Document) error {
	d := docx.New().WithDefaultTheme()

	title := d.AddParagraph().Justification("center")
	text(title, doc.Exam.Name).Bold().Size("36")
	meta := spacing(d.AddParagraph().Justification("center"), 200)
	text(meta, i18n.Td(ctx, "DocCode", map[string]any{"Code": ExamCode(doc.Exam.ID)})+" - "+
		i18n.Td(ctx, "DocCreated", map[string]any{"Date": i18n.Date(ctx, doc.Exam.CreatedAt)}))

	for i, q := range doc.Questions {
		p := spacing(d.AddParagraph(), 300)
		text(p, i18n.Td(ctx, "DocQuestionN", map[string]any{"N": i + 1})+" ").Bold().Color(numberColor)
		text(p, views.Prompt(q))

		switch body := q.Body.(type) {
		case model.MultipleChoice:
			for j, c := range body.Choices {
				text(indent(d.AddParagraph(), choiceInset), views.Letter(j)+". "+c)
			}
		case model.TrueFalse:
			trueFalseTable(ctx, d, body)
		case model.Essay:
			for range views.EssayLines {
				text(spacing(d.AddParagraph(), 200), views.Dots)
			}
		default:
			return unsupported(q)
		}
	}

	end := spacing(d.AddParagraph().Justification("center"), 500)
	text(end, i18n.T(ctx, "DocEnd"))

	if doc.AnswerKey {
		key := d.AddParagraph()
		key.AddPageBreaks()
		text(key, i18n.T(ctx, "DocAnswerKey")).Bold().Size("28")
		for i, a := range answerKey(ctx, doc.Questions) {
			text(d.AddParagraph(), fmt.Sprintf("%d. %s", i+1, a))
		}
	}

	// The section properties close the body.
	d.Document.Body.Items = append(d.Document.Body.Items, &docx.SectPr{
		PgSz: &docx.PgSz{W: pageWidth, H: pageHeight},
		PgMar: &docx.PgMar{
			Top: pageMargin, Left: pageMargin, Bottom: pageMargin, Right: pageMargin,
			Header: 708, Footer: 708,
		},
	})

	if _, err := d.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
