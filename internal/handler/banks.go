package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/transfer"
)

type bankRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) handleListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.svc.Banks.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(banks))
}

func (h *Handler) handleCreateBank(w http.ResponseWriter, r *http.Request) {
	var req bankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bank, err := h.svc.Banks.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bank)
}

func (h *Handler) handleGetBank(w http.ResponseWriter, r *http.Request) {
	bank, err := h.svc.Banks.Get(r.Context(), chi.URLParam(r, "bankID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *Handler) handleUpdateBank(w http.ResponseWriter, r *http.Request) {
	var req bankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "bankID")
	if err := h.svc.Banks.Update(r.Context(), id, req.Name, req.Description); err != nil {
		writeError(w, r, err)
		return
	}
	h.handleGetBank(w, r)
}

func (h *Handler) handleDeleteBank(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Banks.Delete(r.Context(), chi.URLParam(r, "bankID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportBank downloads a bank as JSON, or as a workbook with ?format=xlsx.
func (h *Handler) handleExportBank(w http.ResponseWriter, r *http.Request) {
	export, err := h.svc.Banks.Export(r.Context(), chi.URLParam(r, "bankID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "json":
		err = transfer.WriteBank(&buf, export)
		attachment(w, "application/json", transfer.FileName(export.Bank.Name, "json"))
	case "xlsx":
		err = transfer.WriteBankXLSX(&buf, export)
		attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			transfer.FileName(export.Bank.Name, "xlsx"))
	default:
		w.Header().Del("Content-Disposition")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown export format " + format})
		return
	}
	if err != nil {
		w.Header().Del("Content-Disposition")
		writeError(w, r, err)
		return
	}
	_, _ = buf.WriteTo(w)
}

type bankImportResponse struct {
	Bank    model.Bank `json:"bank"`
	Skipped int        `json:"skipped"`
}

// handleImportBank accepts a multipart "file" holding a bank JSON export or
// an .xlsx workbook.
func (h *Handler) handleImportBank(w http.ResponseWriter, r *http.Request) {
	file, name, ok := upload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	var (
		payload model.BankExport
		skipped int
		err     error
	)
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		var imp transfer.XLSXImport
		imp, err = transfer.ReadBankXLSX(file, name)
		payload, skipped = imp.Bank, imp.Skipped
	} else {
		payload, err = transfer.ReadBank(file)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	bank, err := h.svc.Banks.Import(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bankImportResponse{Bank: bank, Skipped: skipped})
}

func (h *Handler) handleBankTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bankID")
	if _, err := h.svc.Banks.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	tags, err := h.svc.Questions.Tags(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

func (h *Handler) handleAllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Questions.Tags(r.Context(), "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tags))
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.svc.Questions.ListByBank(r.Context(), chi.URLParam(r, "bankID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(qs))
}

// handleCreateQuestion takes the flat question form; bankId comes from the path.
func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if !decodeJSON(w, r, &q) {
		return
	}
	q.ID = ""
	q.BankID = chi.URLParam(r, "bankID")
	created, err := h.svc.Questions.Create(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Questions.Get(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// questionPatchRequest carries the editable fields. When type is present the
// whole body is read again as a question to replace the variant part.
type questionPatchRequest struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
	Type    *string  `json:"type"`
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "read body: " + err.Error()})
		return
	}
	var req questionPatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	patch := model.QuestionPatch{Title: req.Title, Content: req.Content, Tags: req.Tags}
	if req.Type != nil {
		var q model.Question
		if err := json.Unmarshal(data, &q); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid question: " + err.Error()})
			return
		}
		patch.Body = q.Body
	}

	id := chi.URLParam(r, "questionID")
	if err := h.svc.Questions.Update(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	h.handleGetQuestion(w, r)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Questions.Delete(r.Context(), chi.URLParam(r, "questionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (h *Handler) handleSetTags(w http.ResponseWriter, r *http.Request) {
	var req tagsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Questions.SetTags(r.Context(), chi.URLParam(r, "questionID"), req.Tags); err != nil {
		writeError(w, r, err)
		return
	}
	h.handleGetQuestion(w, r)
}

func (h *Handler) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Questions.AddTag(r.Context(), chi.URLParam(r, "questionID"), req.Tag); err != nil {
		writeError(w, r, err)
		return
	}
	h.handleGetQuestion(w, r)
}

func (h *Handler) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "questionID")
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tag"})
		return
	}
	if err := h.svc.Questions.RemoveTag(r.Context(), id, tag); err != nil {
		writeError(w, r, err)
		return
	}
	h.handleGetQuestion(w, r)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
