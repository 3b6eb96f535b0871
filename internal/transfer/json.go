// Package transfer reads and writes the exchange files: per-exam JSON,
// per-bank JSON and XLSX, and full backups.
package transfer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSON decodes r into v. Any decoding failure, including an unknown
// question type, is reported as InvalidFormat.
func readJSON(r io.Reader, what string, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return apperrors.InvalidFormat("%s: %v", what, err)
	}
	return nil
}

func WriteExam(w io.Writer, e model.ExamExport) error {
	return writeJSON(w, e)
}

// ReadExam parses a per-exam file. Presence of the exam and questions keys
// is checked by the importer.
func ReadExam(r io.Reader) (model.ExamExport, error) {
	var e model.ExamExport
	if err := readJSON(r, "exam file", &e); err != nil {
		return model.ExamExport{}, err
	}
	return e, nil
}

func WriteBank(w io.Writer, b model.BankExport) error {
	return writeJSON(w, b)
}

func ReadBank(r io.Reader) (model.BankExport, error) {
	var b model.BankExport
	if err := readJSON(r, "bank file", &b); err != nil {
		return model.BankExport{}, err
	}
	return b, nil
}

func WriteBackup(w io.Writer, b model.Backup) error {
	return writeJSON(w, b)
}

// ReadBackup parses a backup file. The appName check happens on restore.
func ReadBackup(r io.Reader) (model.Backup, error) {
	var b model.Backup
	if err := readJSON(r, "backup file", &b); err != nil {
		return model.Backup{}, err
	}
	return b, nil
}

// FileName builds a download name such as "Midterm_export.xlsx".
func FileName(name, ext string) string {
	safe := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			r = '_'
		}
		safe = append(safe, r)
	}
	if len(safe) == 0 {
		safe = []rune("export")
	}
	return fmt.Sprintf("%s_export.%s", string(safe), ext)
}
