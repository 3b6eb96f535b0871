package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/transfer"
)

type fileHashes interface {
	ImportedFileHash(ctx context.Context, path string) (string, error)
	SetImportedFileHash(ctx context.Context, path, hash string) error
}

type bankImporter interface {
	Import(ctx context.Context, payload model.BankExport) (model.Bank, error)
}

// readBankFile decodes a bank file by extension: .xlsx is a workbook,
// anything else a bank JSON export. It also returns the number of skipped
// workbook rows.
func readBankFile(name string, r io.Reader) (model.BankExport, int, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		imp, err := transfer.ReadBankXLSX(r, name)
		if err != nil {
			return model.BankExport{}, 0, err
		}
		return imp.Bank, imp.Skipped, nil
	}
	b, err := transfer.ReadBank(r)
	return b, 0, err
}

// preloadBanks imports each bank file once. A file whose content is unchanged
// since its last import is skipped; a changed file becomes another bank.
func preloadBanks(ctx context.Context, hashes fileHashes, banks bankImporter, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := hashes.ImportedFileHash(ctx, path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("bank file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("bank file changed since last import, importing as a new bank", "path", path)
		}

		payload, skipped, err := readBankFile(path, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		bank, err := banks.Import(ctx, payload)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		if err := hashes.SetImportedFileHash(ctx, path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported bank file",
			"path", path, "bank_id", bank.ID, "questions", len(payload.Questions), "skipped_rows", skipped)
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
