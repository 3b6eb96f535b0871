package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

func TestBankService(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewBankService(st, discardLogger())

	tests := []struct {
		name    string
		bank    string
		wantErr bool
	}{
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("x", 201), true},
		{"trimmed", "  Algebra  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := svc.Create(ctx, tt.bank, "")
			if tt.wantErr {
				assert.True(t, apperrors.IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.bank), b.Name)
		})
	}

	banks, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, banks, 1)

	require.NoError(t, svc.Update(ctx, banks[0].ID, "Algebra II", "harder"))
	got, err := svc.Get(ctx, banks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra II", got.Name)
	assert.Equal(t, "harder", got.Description)

	assert.True(t, apperrors.IsValidation(svc.Update(ctx, got.ID, "", "")))
	assert.True(t, apperrors.IsNotFound(svc.Update(ctx, "missing", "x", "")))

	require.NoError(t, svc.Delete(ctx, got.ID))
	_, err = svc.Get(ctx, got.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBankExportImport(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewBankService(st, discardLogger())
	b := mustBank(t, st, "Physics")
	q1 := mustQuestion(t, st, b.ID, "Gravity", "mechanics")
	mustQuestion(t, st, b.ID, "Optics")

	payload, err := svc.Export(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, payload.Bank)
	assert.Len(t, payload.Questions, 2)

	imported, err := svc.Import(ctx, payload)
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, imported.ID)
	assert.Equal(t, "Physics (Imported)", imported.Name)

	qs, err := st.ListQuestionsByBank(ctx, imported.ID)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	for _, q := range qs {
		assert.NotEqual(t, q1.ID, q.ID, "imported questions get fresh ids")
		assert.Equal(t, imported.ID, q.BankID)
	}

	// The original bank is untouched.
	orig, err := st.ListQuestionsByBank(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, orig, 2)

	_, err = svc.Import(ctx, model.BankExport{Questions: []model.Question{}})
	assert.True(t, apperrors.IsInvalidFormat(err))
	_, err = svc.Import(ctx, model.BankExport{Bank: &model.Bank{Name: "x"}})
	assert.True(t, apperrors.IsInvalidFormat(err))

	_, err = svc.Export(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestQuestionService(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewQuestionService(st, st, discardLogger())
	b := mustBank(t, st, "B")

	tests := []struct {
		name    string
		q       model.Question
		wantErr func(error) bool
	}{
		{"missing title", model.Question{BankID: b.ID, Body: model.Essay{}}, apperrors.IsValidation},
		{"missing body", model.Question{BankID: b.ID, Title: "t"}, apperrors.IsValidation},
		{"mc without choices", model.Question{BankID: b.ID, Title: "t", Body: model.MultipleChoice{}}, apperrors.IsValidation},
		{"unknown bank", model.Question{BankID: "nope", Title: "t", Body: model.Essay{}}, apperrors.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.q)
			assert.True(t, tt.wantErr(err), "got %v", err)
		})
	}

	q, err := svc.Create(ctx, model.Question{
		BankID: b.ID,
		Title:  "  Statements  ",
		Tags:   []string{" logic ", "", "logic", "sets"},
		Body:   model.TrueFalse{Choices: []string{"A", "B"}, Answers: []bool{true, false}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Statements", q.Title)
	assert.Equal(t, []string{" logic ", "logic", "sets"}, q.Tags)

	require.NoError(t, svc.AddTag(ctx, q.ID, "hard"))
	require.NoError(t, svc.RemoveTag(ctx, q.ID, " logic "))
	got, err := svc.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"logic", "sets", "hard"}, got.Tags)
	assert.True(t, apperrors.IsValidation(svc.AddTag(ctx, q.ID, " ")))

	require.NoError(t, svc.SetTags(ctx, q.ID, []string{"b", "a"}))
	tags, err := svc.Tags(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)

	blank := " "
	assert.True(t, apperrors.IsValidation(svc.Update(ctx, q.ID, model.QuestionPatch{Title: &blank})))
	title := "Renamed"
	require.NoError(t, svc.Update(ctx, q.ID, model.QuestionPatch{Title: &title, Body: model.Essay{Answer: "why"}}))
	got, _ = svc.Get(ctx, q.ID)
	assert.Equal(t, model.TypeEssay, got.Type())

	list, err := svc.ListByBank(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = svc.ListByBank(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, q.ID))
	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, q.ID)))
}

func TestSeedService(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewSeedService(st, discardLogger())

	_, err := svc.Create(ctx, model.ExamSeed{Name: " "})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Create(ctx, model.ExamSeed{
		Name:           "Bad",
		QuestionBlocks: []model.QuestionBlock{{NumberOfQuestions: -1}},
	})
	assert.True(t, apperrors.IsValidation(err))

	sd, err := svc.Create(ctx, model.ExamSeed{
		Name:    " Weekly ",
		BankIDs: []string{"b1"},
		QuestionBlocks: []model.QuestionBlock{
			{NumberOfQuestions: 2, Tags: []string{"x", "", " x ", "x"}},
			{ID: "keep", NumberOfQuestions: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Weekly", sd.Name)
	require.Len(t, sd.QuestionBlocks, 2)
	assert.NotEmpty(t, sd.QuestionBlocks[0].ID)
	assert.Equal(t, []string{"x", " x "}, sd.QuestionBlocks[0].Tags)
	assert.Equal(t, "keep", sd.QuestionBlocks[1].ID)
	assert.Equal(t, []string{}, sd.QuestionBlocks[1].Tags)

	// An empty seed is accepted.
	_, err = svc.Create(ctx, model.ExamSeed{Name: "Empty"})
	require.NoError(t, err)

	seeds, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, seeds, 2)

	name := "Weekly v2"
	require.NoError(t, svc.Update(ctx, sd.ID, model.SeedPatch{Name: &name}))
	got, err := svc.Get(ctx, sd.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Len(t, got.QuestionBlocks, 2)

	assert.True(t, apperrors.IsValidation(svc.Update(ctx, sd.ID, model.SeedPatch{
		QuestionBlocks: []model.QuestionBlock{{NumberOfQuestions: -3}},
	})))

	require.NoError(t, svc.Delete(ctx, sd.ID))
	_, err = svc.Get(ctx, sd.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
