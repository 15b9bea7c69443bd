// Package scanner is the scan orchestrator: risk fusion for every document,
// then collusion detection over the whole batch.
package scanner

import (
    "context"
    "errors"
    "fmt"
    "log/slog"

    "go.opentelemetry.io/otel"
    "go.opentelemetry.io/otel/attribute"
    "golang.org/x/sync/errgroup"

    "bidwatch/internal/domain"
    "bidwatch/internal/logger"
    "bidwatch/internal/services/collusion"
    "bidwatch/internal/services/fusion"
)

var ErrInvalidBatch = errors.New("invalid batch")

const tracerName = "bidwatch/scanner"

type Service struct {
    fusion      *fusion.Engine
    collusion   *collusion.Detector
    concurrency int
}

// New builds the orchestrator. concurrency bounds the per-document fan-out;
// values below 1 mean sequential.
func New(f *fusion.Engine, c *collusion.Detector, concurrency int) *Service {
    if concurrency < 1 {
        concurrency = 1
    }
    return &Service{fusion: f, collusion: c, concurrency: concurrency}
}

// Scan scores every document in place and returns the merged alerts (per
// document in batch order, then collusion alerts) and the pair edges. The
// only error is a structurally invalid batch.
func (s *Service) Scan(ctx context.Context, docs []*domain.Document, historicalAverage float64) (domain.ScanResult, error) {
    if err := validate(docs); err != nil {
        return domain.ScanResult{}, err
    }

    ctx, span := otel.Tracer(tracerName).Start(ctx, "scanner.scan")
    defer span.End()
    span.SetAttributes(attribute.Int("documents", len(docs)))
    ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "bidwatch.scanner"})

    perDoc := make([][]domain.Alert, len(docs))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(s.concurrency)
    for i, doc := range docs {
        i, doc := i, doc
        g.Go(func() error {
            dctx := logger.WithLogFields(gctx, logger.LogFields{Filename: logger.Ptr(doc.Filename)})
            perDoc[i] = s.fusion.Assess(dctx, doc, historicalAverage)
            return nil
        })
    }
    _ = g.Wait() // Assess never fails

    var res domain.ScanResult
    for _, alerts := range perDoc {
        res.Alerts = append(res.Alerts, alerts...)
    }
    collAlerts, edges := s.collusion.Detect(ctx, docs)
    res.Alerts = append(res.Alerts, collAlerts...)
    res.Edges = edges

    span.SetAttributes(attribute.Int("alerts", len(res.Alerts)), attribute.Int("edges", len(res.Edges)))
    slog.InfoContext(ctx, "scan completed",
        "documents", len(docs),
        "alerts", len(res.Alerts),
        "edges", len(res.Edges))
    return res, nil
}

func validate(docs []*domain.Document) error {
    seen := make(map[string]struct{}, len(docs))
    for i, d := range docs {
        if d == nil {
            return fmt.Errorf("%w: document %d is nil", ErrInvalidBatch, i)
        }
        if _, dup := seen[d.Filename]; dup {
            return fmt.Errorf("%w: duplicate filename %q", ErrInvalidBatch, d.Filename)
        }
        seen[d.Filename] = struct{}{}
    }
    return nil
}
