package transfer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

func sampleQuestions() []model.Question {
	return []model.Question{
		{
			ID: "q1", BankID: "b1", Title: "Capital", Content: "Capital of France?",
			Tags: []string{"geo", "easy"}, CreatedAt: 1,
			Body: model.MultipleChoice{Choices: []string{"Paris", "Rome"}, Answer: 0},
		},
		{
			ID: "q2", BankID: "b1", Title: "Facts", Tags: []string{}, CreatedAt: 2,
			Body: model.TrueFalse{Choices: []string{"Sky is blue", "Fire is cold"}, Answers: []bool{true, false}},
		},
		{
			ID: "q3", BankID: "b1", Title: "Explain", Tags: []string{"long"}, CreatedAt: 3,
			Body: model.Essay{Answer: "Because."},
		},
	}
}

func TestExamFile(t *testing.T) {
	in := model.ExamExport{
		Exam:       &model.Exam{ID: "e1", Name: "Midterm", BankIDs: []string{"b1"}, QuestionIDs: []string{"q3", "q1"}},
		Questions:  sampleQuestions(),
		ExportedAt: "2024-03-01T10:00:00.000Z",
		Version:    model.FormatVersion,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteExam(&buf, in))
	assert.Contains(t, buf.String(), `"type": "MULTIPLE_CHOICE"`)
	assert.Contains(t, buf.String(), `"questionIds"`)

	out, err := ReadExam(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadExamMissingKeys(t *testing.T) {
	e, err := ReadExam(strings.NewReader(`{"version":"1.0"}`))
	require.NoError(t, err)
	assert.Nil(t, e.Exam)
	assert.Nil(t, e.Questions)
}

func TestReadInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		read func(string) error
		data string
	}{
		{"exam not json", func(s string) error { _, err := ReadExam(strings.NewReader(s)); return err }, "not json"},
		{"exam empty", func(s string) error { _, err := ReadExam(strings.NewReader(s)); return err }, ""},
		{"exam unknown question type", func(s string) error { _, err := ReadExam(strings.NewReader(s)); return err },
			`{"exam":{"name":"x"},"questions":[{"id":"q","type":"MATCHING"}]}`},
		{"bank wrong shape", func(s string) error { _, err := ReadBank(strings.NewReader(s)); return err }, `{"bank":[]}`},
		{"backup truncated", func(s string) error { _, err := ReadBackup(strings.NewReader(s)); return err }, `{"metadata":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(tt.data)
			assert.True(t, apperrors.IsInvalidFormat(err), "got %v", err)
		})
	}
}

func TestBackupFile(t *testing.T) {
	in := model.Backup{
		Metadata: model.BackupMetadata{Version: "1.0", ExportedAt: "2024-03-01T10:00:00.000Z", AppName: model.AppName},
		Data: model.BackupData{
			Banks:     []model.Bank{{ID: "b1", Name: "B", CreatedAt: 1, UpdatedAt: 2}},
			Questions: sampleQuestions(),
			Exams:     []model.Exam{{ID: "e1", Name: "E", BankIDs: []string{"b1"}, QuestionIDs: []string{"q1"}}},
			ExamSeeds: []model.ExamSeed{{
				ID: "s1", Name: "S", BankIDs: []string{"b1"},
				QuestionBlocks: []model.QuestionBlock{{ID: "k", NumberOfQuestions: 2, Tags: []string{"geo"}}},
			}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBackup(&buf, in))
	assert.Contains(t, buf.String(), `"appName": "ExamHelper"`)
	assert.Contains(t, buf.String(), `"examSeeds"`)

	out, err := ReadBackup(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBankXLSXRoundTrip(t *testing.T) {
	in := model.BankExport{
		Bank:      &model.Bank{ID: "b1", Name: "World", Description: "Geography and more"},
		Questions: sampleQuestions(),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBankXLSX(&buf, in))

	got, err := ReadBankXLSX(bytes.NewReader(buf.Bytes()), "ignored.xlsx")
	require.NoError(t, err)
	assert.Zero(t, got.Skipped)
	assert.Equal(t, "World", got.Bank.Bank.Name)
	assert.Equal(t, "Geography and more", got.Bank.Bank.Description)
	require.Len(t, got.Bank.Questions, 3)

	for i, q := range got.Bank.Questions {
		want := in.Questions[i]
		assert.Equal(t, want.Title, q.Title)
		assert.Equal(t, want.Content, q.Content)
		assert.Equal(t, want.Tags, q.Tags)
		assert.Equal(t, want.Body, q.Body)
		assert.Empty(t, q.ID, "ids are assigned on import")
	}
}

func TestReadBankXLSXDefaults(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	// No Questions or Info sheet: the first sheet is read and the file name used.
	rows := [][]any{
		{"Type", "Title", "Content", "Tags", "Choices", "Answer"},
		{"MULTIPLE_CHOICE", "", "pick", " a , ,b ", "x|y", "second"},
		{"TRUE_FALSE", "TF", "", "", "", "not json"},
		{"MATCHING", "skip me"},
		{},
		{"ESSAY", "Essay", "", "", "", "model answer"},
		{"multiple_choice", "wrong case"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	got, err := ReadBankXLSX(&buf, "/tmp/uploads/Physics 101.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Physics 101", got.Bank.Bank.Name)
	assert.Equal(t, 2, got.Skipped)
	require.Len(t, got.Bank.Questions, 3)

	mc := got.Bank.Questions[0]
	assert.Equal(t, "Untitled", mc.Title)
	assert.Equal(t, []string{"a", "b"}, mc.Tags)
	assert.Equal(t, model.MultipleChoice{Choices: []string{"x", "y"}, Answer: 0}, mc.Body)

	tf := got.Bank.Questions[1]
	assert.Equal(t, model.TrueFalse{Choices: []string{"True", "False"}, Answers: []bool{true, false}}, tf.Body)
	assert.Equal(t, []string{}, tf.Tags)

	assert.Equal(t, model.Essay{Answer: "model answer"}, got.Bank.Questions[2].Body)
}

func TestReadBankXLSXNotAWorkbook(t *testing.T) {
	_, err := ReadBankXLSX(strings.NewReader("plain text"), "x.xlsx")
	assert.True(t, apperrors.IsInvalidFormat(err))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name, ext, want string
	}{
		{"Midterm", "json", "Midterm_export.json"},
		{"a/b: c?", "xlsx", "a_b_ c__export.xlsx"},
		{"", "pdf", "export_export.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.name, tt.ext))
	}
}
