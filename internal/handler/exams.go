package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examhelper/internal/model"
	"github.com/pavelanni/examhelper/internal/render"
	"github.com/pavelanni/examhelper/internal/service"
	"github.com/pavelanni/examhelper/internal/transfer"
)

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.svc.Exams.ListExams(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(exams))
}

type createExamRequest struct {
	Name    string   `json:"name"`
	BankIDs []string `json:"bankIds"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	exam, err := h.svc.Exams.CreateManualExam(r.Context(), req.Name, req.BankIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exam)
}

func (h *Handler) handleExamDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.Exams.GetExamDetailsWithQuestions(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	details.Questions = nonNil(details.Questions)
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) writeExam(w http.ResponseWriter, r *http.Request) {
	exam, err := h.svc.Exams.GetExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleRenameExam(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Exams.RenameExam(r.Context(), chi.URLParam(r, "examID"), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeExam(w, r)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Exams.DeleteExam(r.Context(), chi.URLParam(r, "examID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type questionIDsRequest struct {
	QuestionIDs []string `json:"questionIds"`
}

// handleSetExamQuestions replaces the exam's question list wholesale.
func (h *Handler) handleSetExamQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Exams.UpdateExamQuestions(r.Context(), chi.URLParam(r, "examID"), req.QuestionIDs); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeExam(w, r)
}

func (h *Handler) handleAddExamQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	exam, err := h.svc.Exams.AddQuestions(r.Context(), chi.URLParam(r, "examID"), req.QuestionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (h *Handler) handleRemoveExamQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	exam, err := h.svc.Exams.RemoveQuestions(r.Context(), chi.URLParam(r, "examID"), req.QuestionIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

// handleAvailableQuestions lists bank questions not yet on the exam,
// narrowed by ?search= and ?tag=. With ?all=true it lists every question
// of the exam's banks instead, including those already picked.
func (h *Handler) handleAvailableQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	examID := chi.URLParam(r, "examID")
	var all bool
	if v := q.Get("all"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "all must be a boolean"})
			return
		}
		all = b
	}

	var qs []model.Question
	var err error
	if all {
		qs, err = h.svc.Exams.GetAvailableQuestionsForExam(r.Context(), examID)
	} else {
		qs, err = h.svc.Exams.SearchAvailableQuestions(r.Context(), examID, service.AvailableQuestionsFilter{
			Search: q.Get("search"),
			Tag:    q.Get("tag"),
		})
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(qs))
}

func (h *Handler) handleExportExam(w http.ResponseWriter, r *http.Request) {
	export, err := h.svc.Exams.ExportExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := transfer.WriteExam(&buf, export); err != nil {
		writeError(w, r, err)
		return
	}
	attachment(w, "application/json", transfer.FileName(export.Exam.Name, "json"))
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleImportExam(w http.ResponseWriter, r *http.Request) {
	file, _, ok := upload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	payload, err := transfer.ReadExam(file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	exam, err := h.svc.Exams.ImportExam(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exam)
}

// handleExamDocument prints the exam as ?format=html|pdf|docx in the request
// language. ?answers=true appends the answer key.
func (h *Handler) handleExamDocument(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := render.FormatHTML
	if v := q.Get("format"); v != "" {
		f, err := render.ParseFormat(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		format = f
	}
	var answers bool
	if v := q.Get("answers"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "answers must be a boolean"})
			return
		}
		answers = b
	}

	details, err := h.svc.Exams.GetExamDetailsWithQuestions(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(r.Context(), &buf, format, render.FromDetails(details, answers)); err != nil {
		slog.Error("render error", "exam", details.Exam.ID, "format", format, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if format == render.FormatHTML {
		w.Header().Set("Content-Type", format.ContentType())
	} else {
		attachment(w, format.ContentType(), transfer.FileName(details.Exam.Name, string(format)))
	}
	_, _ = buf.WriteTo(w)
}
