package report

import (
    "encoding/json"
    "io"

    "bidwatch/internal/domain"
)

type jsonDocument struct {
    Filename  string   `json:"filename"`
    RiskScore int      `json:"risk_score"`
    Band      string   `json:"band"`
    BidAmount float64  `json:"bid_amount"`
    Emails    []string `json:"emails"`
    Error     string   `json:"error,omitempty"`
}

type jsonAlert struct {
    Title    string `json:"title"`
    Severity string `json:"severity"`
    Details  string `json:"details"`
    Filename string `json:"filename"`
}

type jsonEdge struct {
    A     string `json:"a"`
    B     string `json:"b"`
    Label string `json:"label"`
}

type jsonReport struct {
    Documents []jsonDocument `json:"documents"`
    Alerts    []jsonAlert    `json:"alerts"`
    Edges     []jsonEdge     `json:"edges"`
    Summary   string         `json:"summary,omitempty"`
}

// JSON writes the same content as Text in machine-readable form.
func JSON(w io.Writer, docs []domain.Document, alerts []domain.Alert, edges []domain.Edge, summary string) error {
    out := jsonReport{
        Documents: make([]jsonDocument, 0, len(docs)),
        Alerts:    make([]jsonAlert, 0, len(alerts)),
        Edges:     make([]jsonEdge, 0, len(edges)),
        Summary:   summary,
    }
    for _, d := range docs {
        emails := d.Emails
        if emails == nil {
            emails = []string{}
        }
        out.Documents = append(out.Documents, jsonDocument{
            Filename:  d.Filename,
            RiskScore: d.RiskScore,
            Band:      string(domain.BandFor(d.RiskScore)),
            BidAmount: d.BidAmount,
            Emails:    emails,
            Error:     d.Err,
        })
    }
    for _, a := range domain.SortAlerts(alerts) {
        out.Alerts = append(out.Alerts, jsonAlert{Title: a.Title, Severity: string(a.Severity), Details: a.Details, Filename: a.Filename})
    }
    for _, e := range edges {
        out.Edges = append(out.Edges, jsonEdge{A: e.A, B: e.B, Label: e.Label})
    }
    enc := json.NewEncoder(w)
    enc.SetIndent("", "  ")
    return enc.Encode(out)
}
