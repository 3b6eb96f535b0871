package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

const (
	sheetQuestions = "Questions"
	sheetInfo      = "Info"
)

var questionHeaders = []string{"Type", "Title", "Content", "Tags", "Choices", "Answer"}

// WriteBankXLSX writes a workbook with a Questions sheet, one row per
// question, and an Info sheet holding the bank name and description.
func WriteBankXLSX(w io.Writer, b model.BankExport) error {
	if b.Bank == nil {
		return apperrors.InvalidFormat("bank export has no bank")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetQuestions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, sheetQuestions, 1, toAny(questionHeaders)); err != nil {
		return err
	}
	for i, q := range b.Questions {
		row, err := questionRow(q)
		if err != nil {
			return err
		}
		if err := setRow(f, sheetQuestions, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(sheetInfo); err != nil {
		return fmt.Errorf("create info sheet: %w", err)
	}
	if err := setRow(f, sheetInfo, 1, []any{"Name", "Description"}); err != nil {
		return err
	}
	if err := setRow(f, sheetInfo, 2, []any{b.Bank.Name, b.Bank.Description}); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func questionRow(q model.Question) ([]any, error) {
	base := []any{string(q.Type()), q.Title, q.Content, strings.Join(q.Tags, ", ")}
	switch b := q.Body.(type) {
	case model.MultipleChoice:
		return append(base, strings.Join(b.Choices, "|"), b.Answer), nil
	case model.TrueFalse:
		answers := b.Answers
		if answers == nil {
			answers = []bool{}
		}
		raw, err := json.Marshal(answers)
		if err != nil {
			return nil, err
		}
		return append(base, strings.Join(b.Choices, "|"), string(raw)), nil
	case model.Essay:
		return append(base, "", b.Answer), nil
	default:
		return nil, fmt.Errorf("question %s: unsupported body %T", q.ID, b)
	}
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// XLSXImport is a parsed bank workbook.
type XLSXImport struct {
	Bank model.BankExport
	// Skipped counts rows whose Type was not a known question type.
	Skipped int
}

// ReadBankXLSX parses a bank workbook. The bank name comes from the Info
// sheet, or from fileName without its extension. Questions come from the
// Questions sheet, or the first sheet when there is none. Missing or
// unparsable cells fall back to defaults rather than failing the import.
func ReadBankXLSX(r io.Reader, fileName string) (XLSXImport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return XLSXImport{}, apperrors.InvalidFormat("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return XLSXImport{}, apperrors.InvalidFormat("workbook has no sheets")
	}

	bank := &model.Bank{Name: strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))}
	if idx, _ := f.GetSheetIndex(sheetInfo); idx >= 0 {
		rows, err := f.GetRows(sheetInfo)
		if err != nil {
			return XLSXImport{}, fmt.Errorf("read info sheet: %w", err)
		}
		if len(rows) >= 2 {
			h := headerIndex(rows[0])
			if name := h.get(rows[1], "Name"); name != "" {
				bank.Name = name
			}
			bank.Description = h.get(rows[1], "Description")
		}
	}

	sheet := sheets[0]
	if idx, _ := f.GetSheetIndex(sheetQuestions); idx >= 0 {
		sheet = sheetQuestions
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return XLSXImport{}, fmt.Errorf("read %s sheet: %w", sheet, err)
	}

	out := XLSXImport{Bank: model.BankExport{Bank: bank, Questions: []model.Question{}}}
	if len(rows) == 0 {
		return out, nil
	}
	h := headerIndex(rows[0])
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		q, ok := h.question(row)
		if !ok {
			out.Skipped++
			continue
		}
		out.Bank.Questions = append(out.Bank.Questions, q)
	}
	return out, nil
}

type header map[string]int

func headerIndex(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

func (h header) get(row []string, column string) string {
	i, ok := h[strings.ToLower(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (h header) question(row []string) (model.Question, bool) {
	t, err := model.ParseQuestionType(h.get(row, "Type"))
	if err != nil {
		return model.Question{}, false
	}
	q := model.Question{
		Title:   h.get(row, "Title"),
		Content: h.get(row, "Content"),
		Tags:    splitTags(h.get(row, "Tags")),
	}
	if q.Title == "" {
		q.Title = "Untitled"
	}
	answer := h.get(row, "Answer")
	choices := splitChoices(h.get(row, "Choices"))

	switch t {
	case model.TypeMultipleChoice:
		idx, err := strconv.Atoi(answer)
		if err != nil {
			idx = 0
		}
		q.Body = model.MultipleChoice{Choices: choices, Answer: idx}
	case model.TypeTrueFalse:
		if len(choices) == 0 {
			choices = []string{"True", "False"}
		}
		var answers []bool
		if err := json.Unmarshal([]byte(answer), &answers); err != nil || answers == nil {
			answers = []bool{true, false}
		}
		q.Body = model.TrueFalse{Choices: choices, Answers: answers}
	case model.TypeEssay:
		q.Body = model.Essay{Answer: answer}
	}
	return q, true
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func splitChoices(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "|")
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
