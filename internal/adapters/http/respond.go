package httpadapter

import (
    "encoding/json"
    "errors"
    "log/slog"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5/middleware"

    "bidwatch/internal/domain"
    "bidwatch/internal/ports"
)

type documentJSON struct {
    Filename  string    `json:"filename"`
    RiskScore int       `json:"risk_score"`
    Band      string    `json:"band"`
    BidAmount float64   `json:"bid_amount"`
    Emails    []string  `json:"emails"`
    VendorID  string    `json:"vendor_id,omitempty"`
    Error     string    `json:"error,omitempty"`
    Uploaded  time.Time `json:"uploaded_at"`
}

type alertJSON struct {
    Title    string `json:"title"`
    Severity string `json:"severity"`
    Details  string `json:"details"`
    Filename string `json:"filename"`
}

type edgeJSON struct {
    A     string `json:"a"`
    B     string `json:"b"`
    Label string `json:"label"`
}

type scanJSON struct {
    ID                string         `json:"id"`
    Status            string         `json:"status"`
    Progress          float64        `json:"progress"`
    HistoricalAverage float64        `json:"historical_average"`
    AlertCount        int            `json:"alert_count"`
    MaxRisk           int            `json:"max_risk"`
    Error             string         `json:"error,omitempty"`
    Documents         []documentJSON `json:"documents"`
    Alerts            []alertJSON    `json:"alerts,omitempty"`
    Edges             []edgeJSON     `json:"edges,omitempty"`
}

func toDocumentJSON(d domain.Document) documentJSON {
    emails := d.Emails
    if emails == nil {
        emails = []string{}
    }
    return documentJSON{
        Filename:  d.Filename,
        RiskScore: d.RiskScore,
        Band:      string(domain.BandFor(d.RiskScore)),
        BidAmount: d.BidAmount,
        Emails:    emails,
        VendorID:  d.VendorID,
        Error:     d.Err,
        Uploaded:  d.UploadedAt,
    }
}

func toDocumentsJSON(docs []domain.Document) []documentJSON {
    out := make([]documentJSON, len(docs))
    for i, d := range docs {
        out[i] = toDocumentJSON(d)
    }
    return out
}

func toAlertsJSON(alerts []domain.Alert) []alertJSON {
    out := make([]alertJSON, len(alerts))
    for i, a := range alerts {
        out[i] = alertJSON{Title: a.Title, Severity: string(a.Severity), Details: a.Details, Filename: a.Filename}
    }
    return out
}

func toEdgesJSON(edges []domain.Edge) []edgeJSON {
    out := make([]edgeJSON, len(edges))
    for i, e := range edges {
        out[i] = edgeJSON{A: e.A, B: e.B, Label: e.Label}
    }
    return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
    writeJSON(w, status, map[string]string{"error": msg})
}

// writeRepoError maps repository sentinels onto status codes.
func writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
    switch {
    case errors.Is(err, ports.ErrNotFound):
        writeError(w, http.StatusNotFound, "scan not found")
    case errors.Is(err, ports.ErrDuplicate):
        writeError(w, http.StatusConflict, err.Error())
    default:
        slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
        writeError(w, http.StatusInternalServerError, "internal error")
    }
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
    dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
    dec.DisallowUnknownFields()
    return dec.Decode(v)
}

func requestLogger(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
        start := time.Now()
        next.ServeHTTP(ww, r)
        slog.InfoContext(r.Context(), "http request",
            "method", r.Method,
            "path", r.URL.Path,
            "status", ww.Status(),
            "duration_ms", time.Since(start).Milliseconds(),
            "request_id", middleware.GetReqID(r.Context()))
    })
}
