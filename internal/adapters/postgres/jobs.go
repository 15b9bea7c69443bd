package postgres

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"

    "bidwatch/internal/ports"
)

var _ ports.JobRepository = (*DB)(nil)

const finishTimeout = 5 * time.Second

// inTx runs fn in a transaction, committing when fn succeeds.
func (db *DB) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil { return err }
    defer func() {
        if err != nil { _ = tx.Rollback(ctx) } else { err = tx.Commit(ctx) }
    }()
    return fn(tx)
}

// Enqueue queues a job for scanID and resets the scan's result summary, so a
// rescan starts from a clean status.
func (db *DB) Enqueue(ctx context.Context, scanID string) (jobID string, err error) {
    err = db.inTx(ctx, func(tx pgx.Tx) error {
        tag, err := tx.Exec(ctx, `
            UPDATE scans SET status='queued', progress=0, error='', finished_at=NULL WHERE id=$1
        `, scanID)
        if err != nil { return err }
        if tag.RowsAffected() == 0 { return ports.ErrNotFound }
        return tx.QueryRow(ctx, `INSERT INTO scan_jobs (scan_id) VALUES ($1) RETURNING id`, scanID).Scan(&jobID)
    })
    return jobID, err
}

// startJob moves one queued job to running and marks its scan running.
// where selects the candidate job; SKIP LOCKED keeps concurrent workers from
// claiming the same row.
func (db *DB) startJob(ctx context.Context, where string, args ...any) (job ports.ScanJob, err error) {
    err = db.inTx(ctx, func(tx pgx.Tx) error {
        err := tx.QueryRow(ctx, `
            UPDATE scan_jobs SET status='running', started_at=now(), attempts=attempts+1
            WHERE id = (
                SELECT id FROM scan_jobs
                WHERE status = 'queued' `+where+`
                ORDER BY queued_at
                FOR UPDATE SKIP LOCKED
                LIMIT 1
            )
            RETURNING id, scan_id
        `, args...).Scan(&job.ID, &job.ScanID)
        if errors.Is(err, pgx.ErrNoRows) { return ports.ErrNotFound }
        if err != nil { return err }
        _, err = tx.Exec(ctx, `
            UPDATE scans SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1
        `, job.ScanID)
        return err
    })
    return job, err
}

// ClaimNext claims the oldest queued job.
func (db *DB) ClaimNext(ctx context.Context) (ports.ScanJob, bool, error) {
    job, err := db.startJob(ctx, "")
    if errors.Is(err, ports.ErrNotFound) {
        return job, false, nil
    }
    return job, err == nil, err
}

// StartJobForScan claims the queued job of one scan, for inline processing.
func (db *DB) StartJobForScan(ctx context.Context, scanID string) (string, error) {
    job, err := db.startJob(ctx, "AND scan_id = $1", scanID)
    return job.ID, err
}

func (db *DB) UpdateScanProgress(ctx context.Context, scanID string, progress float64) error {
    _, err := db.Pool.Exec(ctx, `UPDATE scans SET progress=LEAST(GREATEST($2::double precision, 0), 1) WHERE id=$1`, scanID, progress)
    return err
}

// MarkCompleted closes the job and stamps the scan with its alert count and
// highest document score.
func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
    ctx, cancel := context.WithTimeout(ctx, finishTimeout)
    defer cancel()
    return db.inTx(ctx, func(tx pgx.Tx) error {
        scanID, err := finishJob(ctx, tx, jobID, "completed", "")
        if err != nil { return err }
        _, err = tx.Exec(ctx, `
            UPDATE scans SET
                status='completed', progress=1, finished_at=now(), error='',
                alert_count=(SELECT count(*) FROM scan_alerts WHERE scan_id=$1),
                max_risk=(SELECT COALESCE(max(risk_score), 0) FROM scan_documents WHERE scan_id=$1)
            WHERE id=$1
        `, scanID)
        return err
    })
}

// MarkFailed closes the job and records reason on both the job and the scan.
func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
    ctx, cancel := context.WithTimeout(ctx, finishTimeout)
    defer cancel()
    return db.inTx(ctx, func(tx pgx.Tx) error {
        scanID, err := finishJob(ctx, tx, jobID, "failed", reason)
        if err != nil { return err }
        _, err = tx.Exec(ctx, `UPDATE scans SET status='failed', error=$2, finished_at=now() WHERE id=$1`, scanID, reason)
        return err
    })
}

func finishJob(ctx context.Context, tx pgx.Tx, jobID, status, reason string) (scanID string, err error) {
    err = tx.QueryRow(ctx, `
        UPDATE scan_jobs SET status=$2, reason=NULLIF($3, ''), finished_at=now() WHERE id=$1 RETURNING scan_id
    `, jobID, status, reason).Scan(&scanID)
    if errors.Is(err, pgx.ErrNoRows) { return "", ports.ErrNotFound }
    return scanID, err
}
