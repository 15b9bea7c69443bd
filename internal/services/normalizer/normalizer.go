// Package normalizer turns raw bid documents into domain.Document records:
// plain text with collapsed whitespace, contact emails and a best-effort bid
// amount.
package normalizer

import (
    "bytes"
    "context"
    "fmt"
    "io"
    "log/slog"
    "regexp"
    "strconv"
    "strings"
    "unicode/utf8"

    "github.com/h2non/filetype"

    "bidwatch/internal/domain"
)

var (
    emailRe      = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)

    // Applied to lowercased, comma-free text.
    keywordAmountRe = regexp.MustCompile(`(?:grand|total|bid)\s?(?:price|cost|value|amount)?\s?[:\-]?\s?(?:₹|rs\.?|inr|usd|\$)\s?(\d+\.?\d*)`)
    bareAmountRe    = regexp.MustCompile(`(?:₹|rs\.?|inr|usd|\$)\s?(\d+\.?\d*)`)
)

const defaultMaxBytes = 200 << 20

// Normalizer extracts documents from uploaded bytes.
type Normalizer struct {
    MaxBytes int64
    MaxPages int // 0 reads every page
}

func New() *Normalizer { return &Normalizer{MaxBytes: defaultMaxBytes} }

// Normalize never fails: extraction problems are recorded on the returned
// document's Err field so the batch can skip it.
func (n *Normalizer) Normalize(ctx context.Context, filename string, r io.Reader) domain.Document {
    doc := domain.Document{Filename: filename}
    raw, err := n.read(r)
    if err != nil {
        return failed(ctx, doc, err)
    }
    text, err := n.extractText(ctx, raw)
    if err != nil {
        return failed(ctx, doc, err)
    }
    doc.Text = CleanText(text)
    doc.Emails = ExtractEmails(doc.Text)
    doc.BidAmount = ExtractAmount(doc.Text)
    slog.DebugContext(ctx, "document normalized",
        "filename", filename,
        "chars", len(doc.Text),
        "emails", len(doc.Emails),
        "bid_amount", doc.BidAmount)
    return doc
}

func (n *Normalizer) read(r io.Reader) ([]byte, error) {
    limit := n.MaxBytes
    if limit <= 0 {
        limit = defaultMaxBytes
    }
    raw, err := io.ReadAll(io.LimitReader(r, limit+1))
    if err != nil {
        return nil, fmt.Errorf("read document: %w", err)
    }
    if int64(len(raw)) > limit {
        return nil, fmt.Errorf("document exceeds %d bytes", limit)
    }
    return raw, nil
}

func (n *Normalizer) extractText(ctx context.Context, raw []byte) (string, error) {
    kind, _ := filetype.Match(raw)
    switch {
    case kind.Extension == "pdf":
        return extractPDF(ctx, bytes.NewReader(raw), int64(len(raw)), n.MaxPages)
    case kind == filetype.Unknown && utf8.Valid(raw):
        return string(raw), nil
    default:
        return "", fmt.Errorf("unsupported document format %q", kind.MIME.Value)
    }
}

func failed(ctx context.Context, doc domain.Document, err error) domain.Document {
    slog.WarnContext(ctx, "document extraction failed", "filename", doc.Filename, "error", err)
    doc.Err = err.Error()
    doc.RiskScore = 0
    return doc
}

// CleanText collapses Unicode whitespace runs (NBSP included) into single
// spaces and trims.
func CleanText(s string) string {
    return strings.Join(strings.Fields(s), " ")
}

// ExtractEmails returns every email-shaped token in first-seen order.
// Duplicates are kept.
func ExtractEmails(s string) []string {
    return emailRe.FindAllString(s, -1)
}

// ExtractAmount finds the bid amount: first a keyword-led currency amount,
// then any currency amount, else 0. Whitespace is normalised first so the
// patterns only ever see single ASCII spaces.
func ExtractAmount(s string) float64 {
    s = strings.ReplaceAll(strings.ToLower(CleanText(s)), ",", "")
    for _, re := range []*regexp.Regexp{keywordAmountRe, bareAmountRe} {
        m := re.FindStringSubmatch(s)
        if m == nil {
            continue
        }
        v, err := strconv.ParseFloat(strings.TrimSuffix(m[1], "."), 64)
        if err == nil {
            return v
        }
    }
    return 0
}
