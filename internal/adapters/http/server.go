package httpadapter

import (
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"

    "bidwatch/internal/ports"
    "bidwatch/internal/services/normalizer"
    scanrunner "bidwatch/internal/workers/scanrunner"
)

const (
    defaultWaitTimeout = 30 * time.Second
    maxUploadMemory    = 32 << 20
    maxJSONBody        = 1 << 20
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
    Scans      ports.ScanRepository
    History    ports.HistoryRepository
    Jobs       ports.JobRepository
    Processor  scanrunner.ScanProcessor
    Scanner    ports.Scanner
    Normalizer *normalizer.Normalizer
    Scorer     ports.ContentScorer
    Summarizer ports.Summarizer
    Assistant  ports.Assistant
    // DefaultAverage is used when neither the request nor stored history
    // yields a historical average.
    DefaultAverage float64
}

type Server struct {
    Deps
}

func New(d Deps) *Server {
    if d.Normalizer == nil {
        d.Normalizer = normalizer.New()
    }
    return &Server{Deps: d}
}

// Routes returns a chi.Router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(middleware.Recoverer)
    r.Use(requestLogger)

    r.Get("/healthz", s.getHealthz)
    r.Post("/history", s.postHistory)
    r.Post("/triggers/score", s.postTriggerScore)
    r.Post("/scans", s.postScan)
    r.Route("/scans/{id}", func(r chi.Router) {
        r.Get("/", s.getScan)
        r.Post("/documents", s.postDocument)
        r.Get("/alerts", s.getAlerts)
        r.Get("/graph", s.getGraph)
        r.Get("/summary", s.getSummary)
        r.Post("/ask", s.postAsk)
    })
    return r
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
