// Package collusion flags pairs of bids whose text is nearly identical.
package collusion

import (
    "context"
    "fmt"
    "log/slog"

    "bidwatch/internal/domain"
    "bidwatch/internal/ports"
)

const (
    // MinTextLength is the floor below which documents are not compared.
    MinTextLength = 50
    // Threshold is the similarity percentage above which a pair colludes.
    Threshold = 85.0
    // ForcedScore overrides both documents' scores for a colluding pair.
    ForcedScore = 98

    EdgeLabel = "match"
    trigger   = "Collusion"
)

type Detector struct {
    narrator ports.Narrator // optional
}

func New(narrator ports.Narrator) *Detector {
    return &Detector{narrator: narrator}
}

// Detect compares every eligible pair in docs. Colluding documents have their
// scores forced to ForcedScore. Failures are logged and yield no findings.
func (d *Detector) Detect(ctx context.Context, docs []*domain.Document) (alerts []domain.Alert, edges []domain.Edge) {
    if len(docs) < 2 {
        return nil, nil
    }
    eligible := make([]*domain.Document, 0, len(docs))
    for _, doc := range docs {
        if doc != nil && !doc.Failed() && len(doc.Text) > MinTextLength {
            eligible = append(eligible, doc)
        }
    }
    if len(eligible) < 2 {
        return nil, nil
    }

    defer func() {
        if r := recover(); r != nil {
            slog.WarnContext(ctx, "collusion detection aborted", "panic", r)
            alerts, edges = nil, nil
        }
    }()

    texts := make([]string, len(eligible))
    for i, doc := range eligible {
        texts[i] = doc.Text
    }
    vecs, err := vectorize(texts)
    if err != nil {
        slog.WarnContext(ctx, "collusion detection skipped", "error", err)
        return nil, nil
    }

    for i := 0; i < len(eligible); i++ {
        for j := i + 1; j < len(eligible); j++ {
            sim := cosine(vecs[i], vecs[j]) * 100
            if sim <= Threshold {
                continue
            }
            a, b := eligible[i], eligible[j]
            a.RiskScore = ForcedScore
            b.RiskScore = ForcedScore
            alerts = append(alerts, domain.Alert{
                Title:    trigger,
                Severity: domain.SeverityCritical,
                Details:  d.details(ctx, a, b, sim),
                Filename: domain.FilenameMultiple,
            })
            edges = append(edges, domain.Edge{A: a.Filename, B: b.Filename, Label: EdgeLabel})
            slog.InfoContext(ctx, "colluding pair detected",
                "filename_a", a.Filename,
                "filename_b", b.Filename,
                "similarity", sim)
        }
    }
    return alerts, edges
}

func (d *Detector) details(ctx context.Context, a, b *domain.Document, sim float64) string {
    details := fmt.Sprintf("%.1f%% text match between %s and %s.", sim, a.Filename, b.Filename)
    if d.narrator != nil {
        if verdict := d.narrator.Verdict(ctx, trigger, a.Text, b.Text); verdict != "" {
            details += " " + verdict
        }
    }
    return details
}
