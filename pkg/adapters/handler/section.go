package handler

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/reorder"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

type SectionHandler struct {
	sections ports.SectionService
	reorders ports.ReorderService
	log      logrus.FieldLogger
}

func NewSectionHandler(sections ports.SectionService, reorders ports.ReorderService, logger logrus.FieldLogger) *SectionHandler {
	return &SectionHandler{
		sections: sections,
		reorders: reorders,
		log:      logger.WithField("component", "section_handler"),
	}
}

type sectionRequest struct {
	Title      string `json:"titulo"`
	IsSelected *bool  `json:"is_selected,omitempty"`
}

// ReorderRequest moves the item at From to To
type ReorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func (h *SectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	section, err := h.sections.CreateSection(r.Context(), r.PathValue("id"), req.Title)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, section)
}

func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	sections, err := h.sections.ListSections(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": sections})
}

func (h *SectionHandler) Seed(w http.ResponseWriter, r *http.Request) {
	sections, err := h.sections.SeedDefaults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": sections})
}

func (h *SectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	section, err := h.sections.UpdateSection(r.Context(), r.PathValue("id"), r.PathValue("sectionID"), req.Title, req.IsSelected)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (h *SectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sections.DeleteSection(r.Context(), r.PathValue("id"), r.PathValue("sectionID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SectionHandler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.readMove(w, r)
	if !ok {
		return
	}
	items, err := h.reorders.ReorderSections(r.Context(), r.PathValue("id"), from, to)
	h.writeReorder(w, items, err)
}

func (h *SectionHandler) ReorderSectionLinks(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.readMove(w, r)
	if !ok {
		return
	}
	items, err := h.reorders.ReorderSectionLinks(r.Context(), r.PathValue("id"), r.PathValue("title"), from, to)
	h.writeReorder(w, items, err)
}

func (h *SectionHandler) readMove(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	var req ReorderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return 0, 0, false
	}
	if req.From == nil || req.To == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from and to are required"})
		return 0, 0, false
	}
	return *req.From, *req.To, true
}

// writeReorder answers a failed commit with 409 and the refreshed order so
// the client can redraw it.
func (h *SectionHandler) writeReorder(w http.ResponseWriter, items []reorder.Item, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": items})
	case errors.Is(err, reorder.ErrPersistFailed):
		h.log.WithError(err).Warn("reorder rejected by store")
		if items == nil {
			items = []reorder.Item{}
		}
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": persistFailedMessage,
			"data":  items,
		})
	default:
		writeError(w, h.log, err)
	}
}
