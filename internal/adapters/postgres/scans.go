package postgres

import (
    "context"
    "errors"
    "fmt"

    "github.com/jackc/pgx/v5"

    "bidwatch/internal/domain"
    "bidwatch/internal/ports"
)

var _ ports.ScanRepository = (*DB)(nil)

// Create inserts a queued scan.
func (db *DB) Create(ctx context.Context, historicalAverage float64) (string, error) {
    var scanID string
    err := db.Pool.QueryRow(ctx, `
        INSERT INTO scans (historical_average) VALUES ($1) RETURNING id
    `, historicalAverage).Scan(&scanID)
    return scanID, err
}

func (db *DB) Get(ctx context.Context, scanID string) (ports.Scan, error) {
    s := ports.Scan{ID: scanID}
    err := db.Pool.QueryRow(ctx, `
        SELECT status, progress, historical_average, alert_count, max_risk, error
        FROM scans WHERE id = $1
    `, scanID).Scan(&s.Status, &s.Progress, &s.HistoricalAverage, &s.AlertCount, &s.MaxRisk, &s.Error)
    if errors.Is(err, pgx.ErrNoRows) {
        return s, ports.ErrNotFound
    }
    return s, err
}

// AddDocument appends doc to the scan. A filename already in the scan
// yields ports.ErrDuplicate.
func (db *DB) AddDocument(ctx context.Context, scanID string, doc domain.Document) error {
    tag, err := db.Pool.Exec(ctx, `
        INSERT INTO scan_documents (scan_id, position, filename, body, emails, bid_amount, risk_score, error, vendor_id, uploaded_at)
        VALUES ($1, (SELECT COALESCE(MAX(position) + 1, 0) FROM scan_documents WHERE scan_id = $1),
                $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (scan_id, filename) DO NOTHING
    `, scanID, doc.Filename, doc.Text, nonNil(doc.Emails), doc.BidAmount, doc.RiskScore, doc.Err, doc.VendorID, doc.UploadedAt)
    if err != nil {
        return err
    }
    if tag.RowsAffected() == 0 {
        return fmt.Errorf("%w: %s", ports.ErrDuplicate, doc.Filename)
    }
    return nil
}

func (db *DB) Documents(ctx context.Context, scanID string) ([]domain.Document, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT filename, body, emails, bid_amount, risk_score, error, vendor_id, uploaded_at
        FROM scan_documents WHERE scan_id = $1 ORDER BY position
    `, scanID)
    if err != nil {
        return nil, err
    }
    return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Document, error) {
        var d domain.Document
        err := row.Scan(&d.Filename, &d.Text, &d.Emails, &d.BidAmount, &d.RiskScore, &d.Err, &d.VendorID, &d.UploadedAt)
        return d, err
    })
}

// SaveResult stores scores, appends alerts and replaces edges in one
// transaction. MarkCompleted closes the scan.
func (db *DB) SaveResult(ctx context.Context, scanID string, docs []*domain.Document, res domain.ScanResult) error {
    return db.inTx(ctx, func(tx pgx.Tx) error {
        batch := &pgx.Batch{}
        for _, d := range docs {
            batch.Queue(`UPDATE scan_documents SET risk_score=$3 WHERE scan_id=$1 AND filename=$2`, scanID, d.Filename, d.RiskScore)
        }
        for _, a := range res.Alerts {
            batch.Queue(`INSERT INTO scan_alerts (scan_id, title, severity, details, filename) VALUES ($1, $2, $3, $4, $5)`,
                scanID, a.Title, string(a.Severity), a.Details, a.Filename)
        }
        batch.Queue(`DELETE FROM scan_edges WHERE scan_id=$1`, scanID)
        for _, e := range res.Edges {
            batch.Queue(`INSERT INTO scan_edges (scan_id, filename_a, filename_b, label) VALUES ($1, $2, $3, $4)`,
                scanID, e.A, e.B, e.Label)
        }
        if err := tx.SendBatch(ctx, batch).Close(); err != nil {
            return fmt.Errorf("save scan result: %w", err)
        }
        return nil
    })
}

func (db *DB) Alerts(ctx context.Context, scanID string) ([]domain.Alert, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT title, severity, details, filename FROM scan_alerts WHERE scan_id = $1 ORDER BY id
    `, scanID)
    if err != nil {
        return nil, err
    }
    return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Alert, error) {
        var a domain.Alert
        var sev string
        err := row.Scan(&a.Title, &sev, &a.Details, &a.Filename)
        a.Severity = domain.Severity(sev)
        return a, err
    })
}

func (db *DB) Edges(ctx context.Context, scanID string) ([]domain.Edge, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT filename_a, filename_b, label FROM scan_edges WHERE scan_id = $1
    `, scanID)
    if err != nil {
        return nil, err
    }
    return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Edge, error) {
        var e domain.Edge
        err := row.Scan(&e.A, &e.B, &e.Label)
        return e, err
    })
}

func nonNil(s []string) []string {
    if s == nil {
        return []string{}
    }
    return s
}
