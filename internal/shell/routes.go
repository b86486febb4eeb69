package shell

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"swarmview/internal/feedexport"
	"swarmview/internal/logging"
)

// Routes returns the HTTP handler for the viewer page and its APIs.
func (c *Console) Routes() http.Handler {
	router := httprouter.New()

	router.GET("/api/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.GET("/api/snapshot", c.handleSnapshot)
	router.GET("/gtfs-rt/vehicle-positions", c.handleVehiclePositions)
	router.Handler(http.MethodGet, "/ws", c.hub)
	router.Handler(http.MethodGet, "/static/*filepath",
		http.StripPrefix("/static/", http.FileServer(http.FS(c.opts.Assets))))
	router.HandlerFunc(http.MethodGet, "/", c.servePage)

	return c.withLogging(router)
}

func (c *Console) handleSnapshot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.Snapshot()); err != nil {
		logging.LogError(c.logger, "write snapshot", err)
	}
}

func (c *Console) handleVehiclePositions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := c.Snapshot()
	body, err := feedexport.Marshal(snap.summary, snap.At)
	if err != nil {
		logging.LogError(c.logger, "encode vehicle positions", err)
		http.Error(w, "feed unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", feedexport.ContentType)
	_, _ = w.Write(body)
}

// withLogging does not wrap the ResponseWriter so /ws can still hijack it.
func (c *Console) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		c.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)))
	})
}
