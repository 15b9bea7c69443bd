package scanrunner

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    "bidwatch/internal/domain"
    "bidwatch/internal/logger"
    "bidwatch/internal/ports"
)

// ScanProcessor performs the scan work for a job's scan id.
type ScanProcessor interface {
    Process(ctx context.Context, scanID string) error
}

// Processor loads a stored batch, scans it and persists the result.
type Processor struct {
    Scans   ports.ScanRepository
    Jobs    ports.JobRepository
    Scanner ports.Scanner
}

func (p Processor) Process(ctx context.Context, scanID string) error {
    ctx = logger.WithLogFields(ctx, logger.LogFields{ScanID: logger.Ptr(scanID), Component: "scanrunner"})

    scan, err := p.Scans.Get(ctx, scanID)
    if err != nil { return fmt.Errorf("load scan: %w", err) }
    stored, err := p.Scans.Documents(ctx, scanID)
    if err != nil { return fmt.Errorf("load documents: %w", err) }
    if err := p.Jobs.UpdateScanProgress(ctx, scanID, 0.1); err != nil { return err }

    docs := make([]*domain.Document, len(stored))
    for i := range stored {
        docs[i] = &stored[i]
    }
    start := time.Now()
    res, err := p.Scanner.Scan(ctx, docs, scan.HistoricalAverage)
    if err != nil { return err }
    if err := p.Jobs.UpdateScanProgress(ctx, scanID, 0.9); err != nil { return err }

    if err := p.Scans.SaveResult(ctx, scanID, docs, res); err != nil { return err }
    slog.InfoContext(ctx, "scan processed",
        "documents", len(docs),
        "alerts", len(res.Alerts),
        "edges", len(res.Edges),
        "duration_ms", time.Since(start).Milliseconds())
    return nil
}

// Run starts worker goroutines that claim jobs and process them.
func Run(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, concurrency int, pollInterval time.Duration) {
    if concurrency < 1 { return }
    jobsCh := make(chan ports.ScanJob, concurrency)

    // dispatcher loop
    go func() {
        ticker := time.NewTicker(pollInterval)
        defer ticker.Stop()
        for {
            select {
            case <-ctx.Done():
                close(jobsCh)
                return
            case <-ticker.C:
                for {
                    job, found, err := repo.ClaimNext(ctx)
                    if err != nil {
                        slog.ErrorContext(ctx, "job claim failed", "error", err)
                        break
                    }
                    if !found { break }
                    select {
                    case jobsCh <- job:
                    case <-ctx.Done():
                        close(jobsCh)
                        return
                    }
                }
            }
        }
    }()

    // workers
    for i := 0; i < concurrency; i++ {
        go func(idx int) {
            for job := range jobsCh {
                if err := processor.Process(ctx, job.ScanID); err != nil {
                    // ctx may already be cancelled on shutdown; still record the failure.
                    _ = repo.MarkFailed(context.WithoutCancel(ctx), job.ID, err.Error())
                    slog.ErrorContext(ctx, "scan job failed", "worker", idx, "job_id", job.ID, "scan_id", job.ScanID, "error", err)
                    continue
                }
                if err := repo.MarkCompleted(ctx, job.ID); err != nil {
                    slog.ErrorContext(ctx, "scan job completion failed", "worker", idx, "job_id", job.ID, "error", err)
                }
            }
        }(i)
    }
}

// ProcessInline starts and processes a specific scan synchronously using the same processor logic
// as the background workers. It marks the job as running, calls processor.Process, and completes or fails.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, scanID string) error {
    jobID, err := repo.StartJobForScan(ctx, scanID)
    if err != nil { return err }
    if err := processor.Process(ctx, scanID); err != nil {
        _ = repo.MarkFailed(context.WithoutCancel(ctx), jobID, err.Error())
        return err
    }
    return repo.MarkCompleted(ctx, jobID)
}
