package domain

import (
    "sort"
    "time"
)

// Core domain models for a bid scan. HTTP and storage shapes live in their
// adapters; keep these decoupled.

// Sentinel filenames for alerts that do not belong to a single document.
const (
    FilenameMultiple = "multiple"
    FilenameHistory  = "history"
)

type Severity string

const (
    SeverityMedium   Severity = "MEDIUM"
    SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so CRITICAL sorts ahead of MEDIUM.
func (s Severity) Rank() int {
    switch s {
    case SeverityCritical:
        return 2
    case SeverityMedium:
        return 1
    }
    return 0
}

// Document is a normalized bid. RiskScore is mutated in place during a scan.
type Document struct {
    Filename  string
    Text      string
    Emails    []string
    BidAmount float64 // 0 means "not found"
    RiskScore int
    Err       string // set when extraction failed

    UploadedAt time.Time
    VendorID   string
}

func (d *Document) Failed() bool { return d.Err != "" }

type Alert struct {
    Title    string
    Severity Severity
    Details  string
    Filename string
}

// Edge links two documents flagged together. Direction carries no meaning.
type Edge struct {
    A     string
    B     string
    Label string
}

type ScanResult struct {
    Alerts []Alert
    Edges  []Edge
}

// AwardRecord is one row of historical award data.
type AwardRecord struct {
    Winner string
    Amount *float64
    Fields map[string]string
}

type AwardTable struct {
    Columns []string
    Rows    []AwardRecord
}

func (t AwardTable) HasColumn(name string) bool {
    for _, c := range t.Columns {
        if c == name {
            return true
        }
    }
    return false
}

// AverageAmount is the mean of the rows that carry a winning amount.
func (t AwardTable) AverageAmount() (float64, bool) {
    var sum float64
    var n int
    for _, r := range t.Rows {
        if r.Amount != nil {
            sum += *r.Amount
            n++
        }
    }
    if n == 0 {
        return 0, false
    }
    return sum / float64(n), true
}

type Band string

const (
    BandReject Band = "REJECT"
    BandReview Band = "REVIEW"
    BandSafe   Band = "SAFE"
)

func BandFor(score int) Band {
    switch {
    case score >= 75:
        return BandReject
    case score >= 40:
        return BandReview
    default:
        return BandSafe
    }
}

// ClampScore keeps a score inside [0, 100].
func ClampScore(s int) int {
    if s < 0 {
        return 0
    }
    if s > 100 {
        return 100
    }
    return s
}

// SortAlerts orders alerts by severity, CRITICAL first, keeping arrival order
// within a severity.
func SortAlerts(alerts []Alert) []Alert {
    out := append([]Alert(nil), alerts...)
    sort.SliceStable(out, func(i, j int) bool {
        return out[i].Severity.Rank() > out[j].Severity.Rank()
    })
    return out
}
