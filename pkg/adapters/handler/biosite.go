package handler

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

type BiositeHandler struct {
	service ports.BiositeService
	log     logrus.FieldLogger
}

func NewBiositeHandler(service ports.BiositeService, logger logrus.FieldLogger) *BiositeHandler {
	return &BiositeHandler{service: service, log: logger.WithField("component", "biosite_handler")}
}

type biositeRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (h *BiositeHandler) CreateBiosite(w http.ResponseWriter, r *http.Request) {
	var req biositeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	biosite, err := h.service.CreateBiosite(r.Context(), req.Title, req.Slug, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, biosite)
}

func (h *BiositeHandler) ListBiosites(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}

	biosites, err := h.service.ListBiosites(r.Context(), page, limit, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  biosites,
		"page":  page,
		"limit": limit,
	})
}

// GetBiosite returns the biosite with its full grouping, empty sections included
func (h *BiositeHandler) GetBiosite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	biosite, err := h.service.GetBiosite(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	grouping, err := h.service.Grouping(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"biosite":  biosite,
		"sections": grouping,
	})
}

func (h *BiositeHandler) UpdateBiosite(w http.ResponseWriter, r *http.Request) {
	var req biositeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	biosite, err := h.service.UpdateBiosite(r.Context(), r.PathValue("id"), req.Title, req.Slug, req.Description)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, biosite)
}

func (h *BiositeHandler) DeleteBiosite(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBiosite(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BiositeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetPublicPage serves the rendered page for /u/{slug}
func (h *BiositeHandler) GetPublicPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Page(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
