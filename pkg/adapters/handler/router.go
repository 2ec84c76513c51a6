package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/config"
	"github.com/wadjakorntonsri/go-biosite/pkg/ports"
)

// Services bundles what the router dispatches to
type Services struct {
	Biosites ports.BiositeService
	Links    ports.LinkService
	Sections ports.SectionService
	Reorders ports.ReorderService
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, svc Services, logger logrus.FieldLogger) http.Handler {
	bh := NewBiositeHandler(svc.Biosites, logger)
	lh := NewHTTPHandler(svc.Links, logger)
	sh := NewSectionHandler(svc.Sections, svc.Reorders, logger)

	mw := NewMiddleware(cfg, logger)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /u/{slug}", bh.GetPublicPage)

	// Owner API
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/v1/biosites", bh.CreateBiosite)
	protectedMux.HandleFunc("GET /api/v1/biosites", bh.ListBiosites)
	protectedMux.HandleFunc("GET /api/v1/biosites/{id}", bh.GetBiosite)
	protectedMux.HandleFunc("PUT /api/v1/biosites/{id}", bh.UpdateBiosite)
	protectedMux.HandleFunc("DELETE /api/v1/biosites/{id}", bh.DeleteBiosite)
	protectedMux.HandleFunc("GET /api/v1/biosites/{id}/preview", bh.Preview)

	protectedMux.HandleFunc("POST /api/v1/biosites/{id}/links", lh.Create)
	protectedMux.HandleFunc("GET /api/v1/biosites/{id}/links", lh.List)
	protectedMux.HandleFunc("POST /api/v1/biosites/{id}/links/whatsapp", lh.CreateWhatsApp)
	protectedMux.HandleFunc("PUT /api/v1/biosites/{id}/links/{linkID}", lh.Update)
	protectedMux.HandleFunc("DELETE /api/v1/biosites/{id}/links/{linkID}", lh.Delete)
	protectedMux.HandleFunc("GET /api/v1/biosites/{id}/links/{linkID}/classification", lh.Classify)

	protectedMux.HandleFunc("POST /api/v1/biosites/{id}/sections", sh.Create)
	protectedMux.HandleFunc("GET /api/v1/biosites/{id}/sections", sh.List)
	protectedMux.HandleFunc("POST /api/v1/biosites/{id}/sections/seed", sh.Seed)
	protectedMux.HandleFunc("POST /api/v1/biosites/{id}/sections/reorder", sh.ReorderSections)
	protectedMux.HandleFunc("PUT /api/v1/biosites/{id}/sections/{sectionID}", sh.Update)
	protectedMux.HandleFunc("DELETE /api/v1/biosites/{id}/sections/{sectionID}", sh.Delete)
	protectedMux.HandleFunc("POST /api/v1/biosites/{id}/sections/{title}/links/reorder", sh.ReorderSectionLinks)

	mux.Handle("/api/v1/", mw.AuthMiddleware(protectedMux))

	return mw.RequestLogger(mux)
}
