package postgres

import (
    "context"

    "github.com/jackc/pgx/v5"

    "bidwatch/internal/domain"
    "bidwatch/internal/ports"
)

var _ ports.HistoryRepository = (*DB)(nil)

// ReplaceHistory swaps the stored award history for table.
func (db *DB) ReplaceHistory(ctx context.Context, table domain.AwardTable) (err error) {
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil { return err }
    defer func() {
        if err != nil { _ = tx.Rollback(ctx) } else { err = tx.Commit(ctx) }
    }()

    if _, err = tx.Exec(ctx, `DELETE FROM award_history`); err != nil { return err }
    if _, err = tx.Exec(ctx, `DELETE FROM award_history_columns`); err != nil { return err }

    batch := &pgx.Batch{}
    for i, c := range table.Columns {
        batch.Queue(`INSERT INTO award_history_columns (position, name) VALUES ($1, $2)`, i, c)
    }
    for _, r := range table.Rows {
        fields := r.Fields
        if fields == nil {
            fields = map[string]string{}
        }
        batch.Queue(`INSERT INTO award_history (winner, amount, fields) VALUES ($1, $2, $3)`, r.Winner, r.Amount, fields)
    }
    if batch.Len() == 0 { return nil }
    return tx.SendBatch(ctx, batch).Close()
}

func (db *DB) History(ctx context.Context) (domain.AwardTable, error) {
    var table domain.AwardTable
    rows, err := db.Pool.Query(ctx, `SELECT name FROM award_history_columns ORDER BY position`)
    if err != nil {
        return table, err
    }
    table.Columns, err = pgx.CollectRows(rows, pgx.RowTo[string])
    if err != nil {
        return table, err
    }

    rows, err = db.Pool.Query(ctx, `SELECT winner, amount, fields FROM award_history ORDER BY id`)
    if err != nil {
        return table, err
    }
    table.Rows, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AwardRecord, error) {
        var r domain.AwardRecord
        err := row.Scan(&r.Winner, &r.Amount, &r.Fields)
        return r, err
    })
    return table, err
}
