package handler

import (
	"bytes"
	"net/http"

	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/transfer"
)

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Data.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.svc.Data.Backup(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := transfer.WriteBackup(&buf, backup); err != nil {
		writeError(w, r, err)
		return
	}
	attachment(w, "application/json", transfer.FileName(model.AppName+"_backup", "json"))
	_, _ = buf.WriteTo(w)
}

// handleRestore upserts every record of the uploaded backup. Records that
// are not in the backup are kept. It answers with the new counters.
func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	file, _, ok := upload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	backup, err := transfer.ReadBackup(file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Data.Restore(r.Context(), backup); err != nil {
		writeError(w, r, err)
		return
	}
	h.handleStats(w, r)
}
