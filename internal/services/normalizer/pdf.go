package normalizer

import (
    "context"
    "fmt"
    "io"
    "strings"

    "github.com/ledongthuc/pdf"
)

// extractPDF reads plain text from every page (or the first maxPages).
// Pages that fail to decode are skipped.
func extractPDF(ctx context.Context, r io.ReaderAt, size int64, maxPages int) (text string, err error) {
    // ledongthuc/pdf panics on some malformed inputs.
    defer func() {
        if rec := recover(); rec != nil {
            err = fmt.Errorf("pdf parse panic: %v", rec)
        }
    }()

    reader, err := pdf.NewReader(r, size)
    if err != nil {
        return "", fmt.Errorf("open pdf: %w", err)
    }

    total := reader.NumPage()
    if maxPages > 0 && total > maxPages {
        total = maxPages
    }

    var b strings.Builder
    for i := 1; i <= total; i++ {
        select {
        case <-ctx.Done():
            return "", ctx.Err()
        default:
        }
        page := reader.Page(i)
        if page.V.IsNull() {
            continue
        }
        content, err := page.GetPlainText(nil)
        if err != nil {
            continue
        }
        if b.Len() > 0 {
            b.WriteString(" ")
        }
        b.WriteString(content)
    }
    return b.String(), nil
}
