package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/templui/fitsync/internal/app"
	"github.com/templui/fitsync/internal/handler"
	"github.com/templui/fitsync/internal/middleware"
)

// SetupRoutes builds the local control surface of the serve command.
func SetupRoutes(app *app.App) http.Handler {
	sync := handler.NewSyncHandler(app.Engine, app.ViewService, app.Session)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", sync.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /status", sync.Status)
	mux.HandleFunc("GET /today", sync.Today)
	mux.HandleFunc("POST /sync/push", sync.Push)
	mux.HandleFunc("POST /sync/pull", sync.Pull)

	return middleware.Chain(mux,
		middleware.Recover,
		middleware.RequestLogging,
	)
}
