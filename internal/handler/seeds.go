package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examhelper/internal/model"
)

func (h *Handler) handleListSeeds(w http.ResponseWriter, r *http.Request) {
	seeds, err := h.svc.Seeds.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(seeds))
}

func (h *Handler) handleCreateSeed(w http.ResponseWriter, r *http.Request) {
	var seed model.ExamSeed
	if !decodeJSON(w, r, &seed) {
		return
	}
	seed.ID = ""
	created, err := h.svc.Seeds.Create(r.Context(), seed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetSeed(w http.ResponseWriter, r *http.Request) {
	seed, err := h.svc.Seeds.Get(r.Context(), chi.URLParam(r, "seedID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seed)
}

type seedPatchRequest struct {
	Name           *string               `json:"name"`
	Description    *string               `json:"description"`
	BankIDs        []string              `json:"bankIds"`
	QuestionBlocks []model.QuestionBlock `json:"questionBlocks"`
}

func (h *Handler) handleUpdateSeed(w http.ResponseWriter, r *http.Request) {
	var req seedPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patch := model.SeedPatch{
		Name:           req.Name,
		Description:    req.Description,
		BankIDs:        req.BankIDs,
		QuestionBlocks: req.QuestionBlocks,
	}
	if err := h.svc.Seeds.Update(r.Context(), chi.URLParam(r, "seedID"), patch); err != nil {
		writeError(w, r, err)
		return
	}
	h.handleGetSeed(w, r)
}

func (h *Handler) handleDeleteSeed(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Seeds.Delete(r.Context(), chi.URLParam(r, "seedID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nameRequest struct {
	Name string `json:"name"`
}

// handleGenerate builds a new exam from a seed. Blocks that could not be
// filled come back as warnings next to the exam.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Exams.GenerateFromSeed(r.Context(), chi.URLParam(r, "seedID"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res.Warnings = nonNil(res.Warnings)
	writeJSON(w, http.StatusCreated, res)
}
