package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/reorder"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

const persistFailedMessage = "reorder did not save, list has been refreshed"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, reorder.ErrIndexOutOfRange), errors.Is(err, reorder.ErrUnknownScope):
		return http.StatusBadRequest
	case errors.Is(err, reorder.ErrPersistFailed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalid("invalid request body")
	}
	return nil
}

type HTTPHandler struct {
	service ports.LinkService
	log     logrus.FieldLogger
}

func NewHTTPHandler(service ports.LinkService, logger logrus.FieldLogger) *HTTPHandler {
	return &HTTPHandler{service: service, log: logger.WithField("component", "link_handler")}
}

// CreateWhatsAppRequest payload
type CreateWhatsAppRequest struct {
	Label   string `json:"label"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ports.LinkInput
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	link, err := h.service.CreateLink(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// CreateWhatsApp builds a click-to-chat link from a phone and message
func (h *HTTPHandler) CreateWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req CreateWhatsAppRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	link, err := h.service.CreateWhatsAppLink(r.Context(), r.PathValue("id"), req.Label, req.Phone, req.Message)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.service.ListLinks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": links})
}

func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ports.LinkInput
	if err := decode(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	link, err := h.service.UpdateLink(r.Context(), r.PathValue("id"), r.PathValue("linkID"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteLink(r.Context(), r.PathValue("id"), r.PathValue("linkID")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Classify explains which category and section a link resolves to
func (h *HTTPHandler) Classify(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.ClassifyLink(r.Context(), r.PathValue("id"), r.PathValue("linkID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
