package ports

import (
    "context"
    "errors"

    "bidwatch/internal/domain"
)

var (
    ErrNotFound  = errors.New("not found")
    ErrDuplicate = errors.New("duplicate document")
)

// Scan is the stored state of a scan batch.
type Scan struct {
    ID                string
    Status            string // queued|running|completed|failed
    Progress          float64
    AlertCount        int    // set when the scan completes
    MaxRisk           int    // highest document score, set when the scan completes
    Error             string // failure reason of the last run
    HistoricalAverage float64
}

// ScanRepository stores scan batches, their documents and results.
type ScanRepository interface {
    Create(ctx context.Context, historicalAverage float64) (scanID string, err error)
    Get(ctx context.Context, scanID string) (Scan, error)
    AddDocument(ctx context.Context, scanID string, doc domain.Document) error
    Documents(ctx context.Context, scanID string) ([]domain.Document, error)
    SaveResult(ctx context.Context, scanID string, docs []*domain.Document, res domain.ScanResult) error
    Alerts(ctx context.Context, scanID string) ([]domain.Alert, error)
    Edges(ctx context.Context, scanID string) ([]domain.Edge, error)
}

// HistoryRepository stores uploaded award history.
type HistoryRepository interface {
    ReplaceHistory(ctx context.Context, table domain.AwardTable) error
    History(ctx context.Context) (domain.AwardTable, error)
}
