package history

import (
    "encoding/csv"
    "errors"
    "fmt"
    "io"
    "strconv"
    "strings"

    "bidwatch/internal/domain"
)

// ReadCSV parses award history with a header row. The Winner and Amount
// columns are lifted into the record; every column is kept in Fields.
func ReadCSV(r io.Reader) (domain.AwardTable, error) {
    cr := csv.NewReader(r)
    cr.FieldsPerRecord = -1
    cr.TrimLeadingSpace = true

    header, err := cr.Read()
    if errors.Is(err, io.EOF) {
        return domain.AwardTable{}, nil
    }
    if err != nil {
        return domain.AwardTable{}, fmt.Errorf("read header: %w", err)
    }
    for i := range header {
        header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
    }

    table := domain.AwardTable{Columns: header}
    for {
        row, err := cr.Read()
        if errors.Is(err, io.EOF) {
            break
        }
        if err != nil {
            return domain.AwardTable{}, fmt.Errorf("read row %d: %w", len(table.Rows)+1, err)
        }
        rec := domain.AwardRecord{Fields: make(map[string]string, len(header))}
        for i, col := range header {
            if i >= len(row) {
                break
            }
            rec.Fields[col] = row[i]
        }
        rec.Winner = rec.Fields[WinnerColumn]
        if raw, ok := rec.Fields[AmountColumn]; ok {
            if v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64); err == nil {
                rec.Amount = &v
            }
        }
        table.Rows = append(table.Rows, rec)
    }
    return table, nil
}
