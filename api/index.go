package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/go-biosite/pkg/app"
	"github.com/wadjakorntonsri/go-biosite/pkg/config"
)

var mux http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Note: On Vercel, the sqlite file is ephemeral unless DATABASE_URL points at Turso
	a, err := app.New(cfg, app.NewLogger(cfg))
	if err != nil {
		panic(err)
	}
	mux = a.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
