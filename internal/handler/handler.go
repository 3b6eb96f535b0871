package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examhelper/internal/apperrors"
	"github.com/pavelanni/examhelper/internal/render"
	"github.com/pavelanni/examhelper/internal/service"
)

// maxUpload caps request bodies and uploaded files.
const maxUpload = 32 << 20

// Services are the operations the API exposes.
type Services struct {
	Banks     *service.BankService
	Questions *service.QuestionService
	Seeds     *service.SeedService
	Exams     *service.ExamService
	Data      *service.DataService
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc      Services
	renderer render.Renderer
}

// New creates a new Handler.
func New(svc Services, renderer render.Renderer) *Handler {
	return &Handler{svc: svc, renderer: renderer}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.handleStats)
		r.Get("/tags", h.handleAllTags)

		r.Route("/banks", func(r chi.Router) {
			r.Get("/", h.handleListBanks)
			r.Post("/", h.handleCreateBank)
			r.Post("/import", h.handleImportBank)
			r.Route("/{bankID}", func(r chi.Router) {
				r.Get("/", h.handleGetBank)
				r.Put("/", h.handleUpdateBank)
				r.Delete("/", h.handleDeleteBank)
				r.Get("/export", h.handleExportBank)
				r.Get("/tags", h.handleBankTags)
				r.Get("/questions", h.handleListQuestions)
				r.Post("/questions", h.handleCreateQuestion)
			})
		})

		r.Route("/questions/{questionID}", func(r chi.Router) {
			r.Get("/", h.handleGetQuestion)
			r.Patch("/", h.handleUpdateQuestion)
			r.Delete("/", h.handleDeleteQuestion)
			r.Put("/tags", h.handleSetTags)
			r.Post("/tags", h.handleAddTag)
			r.Delete("/tags/{tag}", h.handleRemoveTag)
		})

		r.Route("/seeds", func(r chi.Router) {
			r.Get("/", h.handleListSeeds)
			r.Post("/", h.handleCreateSeed)
			r.Route("/{seedID}", func(r chi.Router) {
				r.Get("/", h.handleGetSeed)
				r.Patch("/", h.handleUpdateSeed)
				r.Delete("/", h.handleDeleteSeed)
				r.Post("/generate", h.handleGenerate)
			})
		})

		r.Route("/exams", func(r chi.Router) {
			r.Get("/", h.handleListExams)
			r.Post("/", h.handleCreateExam)
			r.Post("/import", h.handleImportExam)
			r.Route("/{examID}", func(r chi.Router) {
				r.Get("/", h.handleExamDetails)
				r.Patch("/", h.handleRenameExam)
				r.Delete("/", h.handleDeleteExam)
				r.Put("/questions", h.handleSetExamQuestions)
				r.Post("/questions/add", h.handleAddExamQuestions)
				r.Post("/questions/remove", h.handleRemoveExamQuestions)
				r.Get("/available", h.handleAvailableQuestions)
				r.Get("/export", h.handleExportExam)
				r.Get("/document", h.handleExamDocument)
			})
		})

		r.Get("/backup", h.handleBackup)
		r.Post("/restore", h.handleRestore)
	})
}

type errorResponse struct {
	Error   string                     `json:"error"`
	Details apperrors.ValidationErrors `json:"details,omitempty"`
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
		var ve apperrors.ValidationErrors
		var single *apperrors.ValidationError
		if errors.As(err, &ve) {
			resp.Details = ve
		} else if errors.As(err, &single) {
			resp.Details = apperrors.ValidationErrors{*single}
		}
	case apperrors.IsInvalidFormat(err):
		status = http.StatusUnprocessableEntity
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// decodeJSON reads a request body into v. A malformed body is a bad request.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxUpload)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// upload returns the "file" part of a multipart request. The caller closes it.
func upload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid upload: " + err.Error()})
		return nil, "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file field"})
		return nil, "", false
	}
	return file, header.Filename, true
}

// attachment marks the response as a download. Non-ASCII file names are
// encoded per RFC 2231.
func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}
