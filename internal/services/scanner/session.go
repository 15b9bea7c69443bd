package scanner

import (
    "context"
    "fmt"
    "sync"

    "github.com/google/uuid"

    "bidwatch/internal/domain"
    "bidwatch/internal/logger"
    "bidwatch/internal/ports"
    "bidwatch/internal/services/history"
)

var ErrDuplicateDocument = ports.ErrDuplicate

// Session owns one review session's batch, its append-only alert list and
// the edges of the latest scan. The caller owns its lifetime.
type Session struct {
    ID string

    mu      sync.Mutex
    scanner ports.Scanner
    docs    []*domain.Document
    alerts  []domain.Alert
    edges   []domain.Edge
    history domain.AwardTable
}

func NewSession(scanner ports.Scanner) *Session {
    return &Session{ID: uuid.NewString(), scanner: scanner}
}

// Add registers a normalized document. Filenames are unique per session.
func (s *Session) Add(doc domain.Document) (*domain.Document, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.add(doc)
}

func (s *Session) add(doc domain.Document) (*domain.Document, error) {
    for _, d := range s.docs {
        if d.Filename == doc.Filename {
            return nil, fmt.Errorf("%w: %s", ErrDuplicateDocument, doc.Filename)
        }
    }
    stored := doc
    s.docs = append(s.docs, &stored)
    return &stored, nil
}

// Submit adds doc and scans it on its own, as done on upload. Adding and
// scanning happen under one lock so a concurrent Scan never sees the
// document unscored.
func (s *Session) Submit(ctx context.Context, doc domain.Document, historicalAverage float64) (domain.Document, []domain.Alert, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    stored, err := s.add(doc)
    if err != nil {
        return domain.Document{}, nil, err
    }
    res, err := s.scanner.Scan(s.ctx(ctx), []*domain.Document{stored}, historicalAverage)
    if err != nil {
        return domain.Document{}, nil, err
    }
    s.alerts = append(s.alerts, res.Alerts...)
    return *stored, res.Alerts, nil
}

// Scan rescans the whole batch, appends its alerts and replaces the edges.
func (s *Session) Scan(ctx context.Context, historicalAverage float64) (domain.ScanResult, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    res, err := s.scanner.Scan(s.ctx(ctx), s.docs, historicalAverage)
    if err != nil {
        return domain.ScanResult{}, err
    }
    s.alerts = append(s.alerts, res.Alerts...)
    s.edges = res.Edges
    return res, nil
}

// IngestHistory replaces the award history and appends its rotation alerts.
func (s *Session) IngestHistory(table domain.AwardTable) []domain.Alert {
    alerts := history.Analyze(table)
    s.mu.Lock()
    defer s.mu.Unlock()
    s.history = table
    s.alerts = append(s.alerts, alerts...)
    return alerts
}

// HistoricalAverage prefers the uploaded history's mean award amount.
func (s *Session) HistoricalAverage(fallback float64) float64 {
    s.mu.Lock()
    defer s.mu.Unlock()
    if avg, ok := s.history.AverageAmount(); ok {
        return avg
    }
    return fallback
}

func (s *Session) Documents() []domain.Document {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]domain.Document, len(s.docs))
    for i, d := range s.docs {
        out[i] = *d
    }
    return out
}

func (s *Session) Alerts() []domain.Alert {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]domain.Alert(nil), s.alerts...)
}

func (s *Session) Edges() []domain.Edge {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]domain.Edge(nil), s.edges...)
}

func (s *Session) ctx(ctx context.Context) context.Context {
    return logger.WithLogFields(ctx, logger.LogFields{ScanID: logger.Ptr(s.ID)})
}
