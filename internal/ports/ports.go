package ports

import (
    "context"

    "bidwatch/internal/domain"
)

// ContentScorer judges the semantic risk of a bid excerpt. Implementations
// never return errors; on failure they fall back to a neutral score.
type ContentScorer interface {
    ScoreContent(ctx context.Context, excerpt string) (score int, reason string)
    ScoreTrigger(ctx context.Context, trigger, evidence string) (score int, reason string)
}

// Narrator explains in one sentence why two documents were flagged together.
type Narrator interface {
    Verdict(ctx context.Context, trigger, textA, textB string) string
}

// Summarizer writes an executive summary over a scan's alerts.
type Summarizer interface {
    Summarize(ctx context.Context, alerts []domain.Alert, docCount int) string
}

// Assistant answers reviewer questions grounded on the scanned documents.
type Assistant interface {
    Answer(ctx context.Context, question string, docs []domain.Document, alerts []domain.Alert) string
}

// Scanner runs a full scan over a batch.
type Scanner interface {
    Scan(ctx context.Context, docs []*domain.Document, historicalAverage float64) (domain.ScanResult, error)
}
