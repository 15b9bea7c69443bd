package report

import (
    "fmt"
    "io"
    "sort"

    "github.com/fatih/color"

    "bidwatch/internal/domain"
)

var (
    critical = color.New(color.FgRed, color.Bold)
    medium   = color.New(color.FgYellow)
    safe     = color.New(color.FgGreen)
)

// Text writes a human-readable report: documents by descending risk, then
// alerts with CRITICAL first.
func Text(w io.Writer, docs []domain.Document, alerts []domain.Alert, edges []domain.Edge) {
    sorted := append([]domain.Document(nil), docs...)
    sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RiskScore > sorted[j].RiskScore })

    fmt.Fprintln(w, "Documents")
    for _, d := range sorted {
        band := domain.BandFor(d.RiskScore)
        line := fmt.Sprintf("  %-7s %3d  %-40s %15.2f", band, d.RiskScore, d.Filename, d.BidAmount)
        if d.Failed() {
            line += "  (extraction failed: " + d.Err + ")"
        }
        bandColour(band).Fprintln(w, line)
    }

    fmt.Fprintln(w, "Alerts")
    if len(alerts) == 0 {
        safe.Fprintln(w, "  none")
    }
    for _, a := range domain.SortAlerts(alerts) {
        c := medium
        if a.Severity == domain.SeverityCritical {
            c = critical
        }
        c.Fprintf(w, "  [%s] %s (%s): %s\n", a.Severity, a.Title, a.Filename, a.Details)
    }

    if len(edges) > 0 {
        fmt.Fprintf(w, "Suspicious connections: %d\n", len(edges))
        for _, e := range edges {
            fmt.Fprintf(w, "  %s <-> %s (%s)\n", e.A, e.B, e.Label)
        }
    }
}

func bandColour(b domain.Band) *color.Color {
    switch b {
    case domain.BandReject:
        return critical
    case domain.BandReview:
        return medium
    }
    return safe
}
