package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/generator"
	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/store"
)

func TestGenerateFromSeed_ScenarioA(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	b1 := mustBank(t, st, "B1")
	q1 := mustQuestion(t, st, b1.ID, "q1", "algebra")
	q2 := mustQuestion(t, st, b1.ID, "q2", "algebra")
	q3 := mustQuestion(t, st, b1.ID, "q3", "geometry")

	t.Run("exact fill", func(t *testing.T) {
		sd := mustSeed(t, st, []string{b1.ID}, model.QuestionBlock{ID: "k", NumberOfQuestions: 2, Tags: []string{"algebra"}})
		for seed := uint64(0); seed < 50; seed++ {
			svc := NewExamService(st, discardLogger(), WithShuffler(generator.SeededShuffler(seed)))
			res, err := svc.GenerateFromSeed(ctx, sd.ID, "Quiz")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{q1.ID, q2.ID}, res.Exam.QuestionIDs)
			assert.NotContains(t, res.Exam.QuestionIDs, q3.ID)
			assert.Empty(t, res.Warnings)
		}
	})

	t.Run("underfill", func(t *testing.T) {
		logger, buf := bufferLogger()
		sd := mustSeed(t, st, []string{b1.ID}, model.QuestionBlock{ID: "k", NumberOfQuestions: 5, Tags: []string{"algebra"}})
		svc := NewExamService(st, logger, WithShuffler(generator.SeededShuffler(7)))
		res, err := svc.GenerateFromSeed(ctx, sd.ID, "Quiz")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{q1.ID, q2.ID}, res.Exam.QuestionIDs)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, 5, res.Warnings[0].Requested)
		assert.Equal(t, 2, res.Warnings[0].Picked)
		assert.Contains(t, buf.String(), "level=WARN")

		stored, err := st.GetExam(ctx, res.Exam.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Exam.QuestionIDs, stored.QuestionIDs)
	})
}

func TestGenerateMatchesTagsExactly(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	b := mustBank(t, st, "B")
	padded := mustQuestion(t, st, b.ID, "padded", "Algebra ")
	mustQuestion(t, st, b.ID, "plain", "Algebra")

	seeds := NewSeedService(st, discardLogger())
	sd, err := seeds.Create(ctx, model.ExamSeed{
		Name:           "Exact",
		BankIDs:        []string{b.ID},
		QuestionBlocks: []model.QuestionBlock{{NumberOfQuestions: 1, Tags: []string{"Algebra "}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Algebra "}, sd.QuestionBlocks[0].Tags)

	for seed := uint64(0); seed < 20; seed++ {
		svc := NewExamService(st, discardLogger(), WithShuffler(generator.SeededShuffler(seed)))
		res, err := svc.GenerateFromSeed(ctx, sd.ID, "Quiz")
		require.NoError(t, err)
		assert.Equal(t, []string{padded.ID}, res.Exam.QuestionIDs)
		assert.Empty(t, res.Warnings)
	}
}

func TestGenerateFromSeed_ScenarioC(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	b := mustBank(t, st, "B")
	only := mustQuestion(t, st, b.ID, "only x", "x")
	mustQuestion(t, st, b.ID, "other", "y")

	sd := mustSeed(t, st, []string{b.ID},
		model.QuestionBlock{ID: "k1", NumberOfQuestions: 1, Tags: []string{"x"}},
		model.QuestionBlock{ID: "k2", NumberOfQuestions: 1, Tags: []string{"x"}},
	)
	svc := NewExamService(st, discardLogger())
	res, err := svc.GenerateFromSeed(ctx, sd.ID, "Quiz")
	require.NoError(t, err)
	assert.Equal(t, []string{only.ID}, res.Exam.QuestionIDs)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 1, res.Warnings[0].BlockIndex)
	assert.Equal(t, "k2", res.Warnings[0].BlockID)
	assert.Equal(t, 0, res.Warnings[0].Picked)
}

func TestGenerateFromSeed_NoDuplicatesAcrossBanks(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	b1 := mustBank(t, st, "B1")
	b2 := mustBank(t, st, "B2")
	for i := range 6 {
		mustQuestion(t, st, b1.ID, "a", "x", "y")
		if i%2 == 0 {
			mustQuestion(t, st, b2.ID, "b", "y")
		}
	}
	// b1 is listed twice to check the pool tolerates repeated banks.
	sd := mustSeed(t, st, []string{b1.ID, b2.ID, b1.ID},
		model.QuestionBlock{ID: "k1", NumberOfQuestions: 4, Tags: []string{"x"}},
		model.QuestionBlock{ID: "k2", NumberOfQuestions: 4, Tags: []string{"y"}},
		model.QuestionBlock{ID: "k3", NumberOfQuestions: 3},
	)

	for seed := uint64(0); seed < 100; seed++ {
		svc := NewExamService(st, discardLogger(), WithShuffler(generator.SeededShuffler(seed)))
		res, err := svc.GenerateFromSeed(ctx, sd.ID, "Quiz")
		require.NoError(t, err)
		seen := map[string]bool{}
		for _, id := range res.Exam.QuestionIDs {
			require.False(t, seen[id], "duplicate %s with seed %d", id, seed)
			seen[id] = true
		}
		assert.Len(t, res.Exam.QuestionIDs, 9)
		assert.Equal(t, []string{b1.ID, b2.ID, b1.ID}, res.Exam.BankIDs)
	}
}

func TestGenerateFromSeed_Errors(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewExamService(st, discardLogger())

	_, err := svc.GenerateFromSeed(ctx, "missing", "Quiz")
	assert.True(t, apperrors.IsNotFound(err))

	sd := mustSeed(t, st, nil)
	_, err = svc.GenerateFromSeed(ctx, sd.ID, "   ")
	assert.True(t, apperrors.IsValidation(err))

	exams, err := st.ListExams(ctx)
	require.NoError(t, err)
	assert.Empty(t, exams)

	res, err := svc.GenerateFromSeed(ctx, sd.ID, "  Empty  ")
	require.NoError(t, err)
	assert.Equal(t, "Empty", res.Exam.Name)
	assert.Empty(t, res.Exam.QuestionIDs)
}

func TestManualExamCuration(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewExamService(st, discardLogger())

	_, err := svc.CreateManualExam(ctx, "", []string{"b"})
	assert.True(t, apperrors.IsValidation(err))

	e, err := svc.CreateManualExam(ctx, " Final ", []string{"b1"})
	require.NoError(t, err)
	assert.Equal(t, "Final", e.Name)
	assert.Empty(t, e.QuestionIDs)

	e, err = svc.AddQuestions(ctx, e.ID, []string{"q1", "q2", "q1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, e.QuestionIDs)

	e, err = svc.AddQuestions(ctx, e.ID, []string{"q2", "q3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2", "q3"}, e.QuestionIDs)

	e, err = svc.RemoveQuestions(ctx, e.ID, []string{"q2", "nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q3"}, e.QuestionIDs)

	// Two writers that both read the same list: the later full replacement wins.
	require.NoError(t, svc.UpdateExamQuestions(ctx, e.ID, []string{"q1", "q3", "qa"}))
	require.NoError(t, svc.UpdateExamQuestions(ctx, e.ID, []string{"q1", "q3", "qb"}))
	got, err := svc.GetExam(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q3", "qb"}, got.QuestionIDs)
	assert.Greater(t, got.UpdatedAt, got.CreatedAt)

	require.NoError(t, svc.RenameExam(ctx, e.ID, "Final v2"))
	got, _ = svc.GetExam(ctx, e.ID)
	assert.Equal(t, "Final v2", got.Name)

	require.NoError(t, svc.DeleteExam(ctx, e.ID))
	assert.True(t, apperrors.IsNotFound(svc.DeleteExam(ctx, e.ID)))
	assert.True(t, apperrors.IsNotFound(svc.UpdateExamQuestions(ctx, e.ID, nil)))
	_, err = svc.AddQuestions(ctx, e.ID, []string{"q"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetExamDetailsWithQuestions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewExamService(st, discardLogger())
	b1 := mustBank(t, st, "Algebra")
	b2 := mustBank(t, st, "Geometry")
	q1 := mustQuestion(t, st, b1.ID, "q1")
	q3 := mustQuestion(t, st, b1.ID, "q3")
	q5 := mustQuestion(t, st, b2.ID, "q5")

	// The exam only lists b1, yet q5 from b2 must still resolve.
	e, err := svc.CreateManualExam(ctx, "E", []string{b1.ID})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateExamQuestions(ctx, e.ID, []string{q5.ID, q1.ID, q3.ID}))

	t.Run("order fidelity", func(t *testing.T) {
		d, err := svc.GetExamDetailsWithQuestions(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{q5.ID, q1.ID, q3.ID}, questionIDs(d.Questions))
		assert.Equal(t, map[string]string{b1.ID: "Algebra", b2.ID: "Geometry"}, d.BanksMap)
	})

	t.Run("scenario B: deleted question is skipped", func(t *testing.T) {
		require.NoError(t, st.DeleteQuestion(ctx, q3.ID))
		d, err := svc.GetExamDetailsWithQuestions(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{q5.ID, q1.ID}, questionIDs(d.Questions))
		assert.Equal(t, []string{q5.ID, q1.ID, q3.ID}, d.Exam.QuestionIDs)
	})

	t.Run("repeated id resolves each time", func(t *testing.T) {
		require.NoError(t, svc.UpdateExamQuestions(ctx, e.ID, []string{q1.ID, q5.ID, q1.ID}))
		d, err := svc.GetExamDetailsWithQuestions(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{q1.ID, q5.ID, q1.ID}, questionIDs(d.Questions))
	})

	t.Run("deleted bank", func(t *testing.T) {
		require.NoError(t, st.DeleteBank(ctx, b2.ID))
		d, err := svc.GetExamDetailsWithQuestions(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{q1.ID, q1.ID}, questionIDs(d.Questions))
		assert.NotContains(t, d.BanksMap, b2.ID)
	})

	_, err = svc.GetExamDetailsWithQuestions(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAvailableQuestions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewExamService(st, discardLogger())
	b1 := mustBank(t, st, "B1")
	b2 := mustBank(t, st, "B2")
	qa := mustQuestion(t, st, b1.ID, "Linear equations", "algebra")
	qb := mustQuestion(t, st, b1.ID, "Triangles", "geometry")
	qc := mustQuestion(t, st, b2.ID, "Quadratic equations", "algebra")
	mustQuestion(t, st, mustBank(t, st, "B3").ID, "elsewhere")

	e, err := svc.CreateManualExam(ctx, "E", []string{b1.ID, b2.ID, b1.ID})
	require.NoError(t, err)

	all, err := svc.GetAvailableQuestionsForExam(ctx, e.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{qa.ID, qb.ID, qc.ID}, questionIDs(all))

	_, err = svc.AddQuestions(ctx, e.ID, []string{qa.ID})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter AvailableQuestionsFilter
		want   []string
	}{
		{"excludes exam questions", AvailableQuestionsFilter{}, []string{qb.ID, qc.ID}},
		{"search is case-insensitive", AvailableQuestionsFilter{Search: "EQUATIONS"}, []string{qc.ID}},
		{"tag is exact", AvailableQuestionsFilter{Tag: "geometry"}, []string{qb.ID}},
		{"tag case matters", AvailableQuestionsFilter{Tag: "Geometry"}, nil},
		{"search and tag", AvailableQuestionsFilter{Search: "tri", Tag: "algebra"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SearchAvailableQuestions(ctx, e.ID, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, questionIDs(got))
		})
	}
}

func TestExportImportExam(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	exportTime := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	srcSvc := NewExamService(src, discardLogger(), WithNow(func() time.Time { return exportTime }))
	b := mustBank(t, src, "B")
	q1 := mustQuestion(t, src, b.ID, "q1")
	q2 := mustQuestion(t, src, b.ID, "q2")
	e, err := srcSvc.CreateManualExam(ctx, "Midterm", []string{b.ID})
	require.NoError(t, err)
	require.NoError(t, srcSvc.UpdateExamQuestions(ctx, e.ID, []string{q2.ID, q1.ID, q2.ID}))

	payload, err := srcSvc.ExportExam(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FormatVersion, payload.Version)
	assert.Equal(t, "2024-05-06T07:08:09.000Z", payload.ExportedAt)
	assert.Equal(t, []string{q2.ID, q1.ID}, questionIDs(payload.Questions))

	// A separate database whose id generator would collide with the source.
	dst := newTestStore(t)
	dstSvc := NewExamService(dst, discardLogger())
	first, err := dstSvc.ImportExam(ctx, payload)
	require.NoError(t, err)
	second, err := dstSvc.ImportExam(ctx, payload)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Midterm (Imported)", first.Name)
	assert.Equal(t, e.QuestionIDs, first.QuestionIDs)
	assert.Equal(t, e.BankIDs, first.BankIDs)

	// The source bank does not exist locally; questions resolve by id anyway.
	d, err := dstSvc.GetExamDetailsWithQuestions(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{q2.ID, q1.ID, q2.ID}, questionIDs(d.Questions))
	assert.Equal(t, b.ID, d.Questions[0].BankID)
	assert.Empty(t, d.BanksMap)
}

func TestImportExam_InvalidFormat(t *testing.T) {
	ctx := context.Background()
	svc := NewExamService(newTestStore(t), discardLogger())

	_, err := svc.ImportExam(ctx, model.ExamExport{Questions: []model.Question{}})
	assert.True(t, apperrors.IsInvalidFormat(err))

	_, err = svc.ImportExam(ctx, model.ExamExport{Exam: &model.Exam{Name: "x"}})
	assert.True(t, apperrors.IsInvalidFormat(err))
}

func TestImportExam_RejectsQuestionsWithoutID(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewExamService(st, discardLogger())

	payload := model.ExamExport{
		Exam: &model.Exam{ID: "e1", Name: "E"},
		Questions: []model.Question{
			{ID: "q1", BankID: "b", Title: "kept", Tags: []string{}, Body: model.Essay{}},
			{BankID: "b", Title: "first", Tags: []string{}, Body: model.Essay{}},
			{BankID: "b", Title: "second", Tags: []string{}, Body: model.Essay{}},
		},
	}
	_, err := svc.ImportExam(ctx, payload)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidFormat(err), "got %v", err)
	assert.Contains(t, err.Error(), "question #2 has no id")

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{}, stats)
}

// failingExams lets question upserts through and fails the exam insert.
type failingExams struct {
	*store.Store
}

func (failingExams) CreateExam(context.Context, model.Exam) (model.Exam, error) {
	return model.Exam{}, errors.New("disk full")
}

func TestImportExam_IsAtomic(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewExamService(failingExams{st}, discardLogger())

	payload := model.ExamExport{
		Exam: &model.Exam{ID: "e1", Name: "E", QuestionIDs: []string{"q1"}},
		Questions: []model.Question{{
			ID: "q1", BankID: "foreign", Title: "t", Tags: []string{}, Body: model.Essay{},
		}},
	}
	_, err := svc.ImportExam(ctx, payload)
	require.Error(t, err)

	_, err = st.GetQuestion(ctx, "q1")
	assert.True(t, apperrors.IsNotFound(err), "question upsert should be rolled back")
}

func questionIDs(qs []model.Question) []string {
	var ids []string
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	return ids
}
