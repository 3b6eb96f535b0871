package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	var clock int64 = 1_700_000_000_000
	seq := 0
	st, err := store.New(":memory:",
		store.WithClock(func() int64 { clock++; return clock }),
		store.WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%03d", seq) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func mustBank(t *testing.T, st *store.Store, name string) model.Bank {
	t.Helper()
	b, err := st.CreateBank(context.Background(), name, "")
	require.NoError(t, err)
	return b
}

func mustQuestion(t *testing.T, st *store.Store, bankID, title string, tags ...string) model.Question {
	t.Helper()
	if tags == nil {
		tags = []string{}
	}
	q, err := st.CreateQuestion(context.Background(), model.Question{
		BankID: bankID,
		Title:  title,
		Tags:   tags,
		Body:   model.MultipleChoice{Choices: []string{"yes", "no"}, Answer: 0},
	})
	require.NoError(t, err)
	return q
}

func mustSeed(t *testing.T, st *store.Store, bankIDs []string, blocks ...model.QuestionBlock) model.ExamSeed {
	t.Helper()
	for i := range blocks {
		if blocks[i].Tags == nil {
			blocks[i].Tags = []string{}
		}
	}
	sd, err := st.CreateSeed(context.Background(), model.ExamSeed{
		Name:           "seed",
		BankIDs:        bankIDs,
		QuestionBlocks: blocks,
	})
	require.NoError(t, err)
	return sd
}
