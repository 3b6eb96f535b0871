package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/service"
	"github.com/pavelanni/examhelper/internal/store"
	"github.com/pavelanni/examhelper/internal/transfer"
)

func testBankFile(name string, titles ...string) model.BankExport {
	b := model.BankExport{Bank: &model.Bank{ID: "b1", Name: name}, Questions: []model.Question{}}
	for _, title := range titles {
		b.Questions = append(b.Questions, model.Question{
			ID: "q-" + title, BankID: "b1", Title: title, Tags: []string{},
			Body: model.TrueFalse{Choices: []string{"a", "b"}, Answers: []bool{true, false}},
		})
	}
	return b
}

func writeFile(t *testing.T, path string, write func(*bytes.Buffer) error) {
	t.Helper()
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func bankNames(t *testing.T, st *store.Store) []string {
	t.Helper()
	banks, err := st.ListBanks(context.Background())
	if err != nil {
		t.Fatalf("ListBanks: %v", err)
	}
	var names []string
	for _, b := range banks {
		names = append(names, b.Name)
	}
	return names
}

func TestPreloadBanks(t *testing.T) {
	ctx := context.Background()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()
	banks := service.NewBankService(st, nil)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "physics.json")
	xlsxPath := filepath.Join(dir, "chemistry.XLSX")
	writeFile(t, jsonPath, func(b *bytes.Buffer) error {
		return transfer.WriteBank(b, testBankFile("Physics", "Inertia", "Friction"))
	})
	writeFile(t, xlsxPath, func(b *bytes.Buffer) error {
		return transfer.WriteBankXLSX(b, testBankFile("Chemistry", "Atoms"))
	})
	paths := []string{jsonPath, xlsxPath}

	if err := preloadBanks(ctx, st, banks, paths); err != nil {
		t.Fatalf("first preload: %v", err)
	}
	if got := len(bankNames(t, st)); got != 2 {
		t.Fatalf("after first preload: %d banks, want 2", got)
	}
	stats, _ := st.Stats(ctx)
	if stats.Questions != 3 {
		t.Errorf("questions = %d, want 3", stats.Questions)
	}

	// Unchanged files are not imported again.
	if err := preloadBanks(ctx, st, banks, paths); err != nil {
		t.Fatalf("second preload: %v", err)
	}
	if got := len(bankNames(t, st)); got != 2 {
		t.Fatalf("after unchanged preload: %d banks, want 2", got)
	}

	writeFile(t, jsonPath, func(b *bytes.Buffer) error {
		return transfer.WriteBank(b, testBankFile("Physics", "Inertia", "Friction", "Momentum"))
	})
	if err := preloadBanks(ctx, st, banks, paths); err != nil {
		t.Fatalf("changed preload: %v", err)
	}
	names := bankNames(t, st)
	if len(names) != 3 {
		t.Fatalf("after changed preload: banks %v, want 3", names)
	}
	for _, n := range names {
		if n != "Physics (Imported)" && n != "Chemistry (Imported)" {
			t.Errorf("unexpected bank name %q", n)
		}
	}
}

func TestPreloadBanksErrors(t *testing.T) {
	ctx := context.Background()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()
	banks := service.NewBankService(st, nil)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.json")},
		{"malformed file", bad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := preloadBanks(ctx, st, banks, []string{tt.path}); err == nil {
				t.Fatal("expected error")
			}
			if h, _ := st.ImportedFileHash(ctx, tt.path); h != "" {
				t.Errorf("failed import recorded hash %q", h)
			}
		})
	}
}
