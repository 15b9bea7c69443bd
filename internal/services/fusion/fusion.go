// Package fusion combines the rule checks and the external content score
// into one risk score and alert list per document.
package fusion

import (
    "context"
    "log/slog"

    "bidwatch/internal/domain"
    "bidwatch/internal/ports"
    "bidwatch/internal/services/rules"
)

// AlertThreshold is the external score above which an assessment alert is raised.
const AlertThreshold = 40

// Policy folds the external score and the rule floors into a final score.
type Policy interface {
    Combine(external int, floors ...int) int
}

// MaxPolicy lets the most severe signal win.
type MaxPolicy struct{}

func (MaxPolicy) Combine(external int, floors ...int) int {
    score := external
    for _, f := range floors {
        if f > score {
            score = f
        }
    }
    return domain.ClampScore(score)
}

type Engine struct {
    scorer ports.ContentScorer
    policy Policy
}

func New(scorer ports.ContentScorer, policy Policy) *Engine {
    if policy == nil {
        policy = MaxPolicy{}
    }
    return &Engine{scorer: scorer, policy: policy}
}

// Assess scores doc in place and returns its alerts: the external assessment
// first, then the rule alerts. Failed documents are skipped.
func (e *Engine) Assess(ctx context.Context, doc *domain.Document, historicalAverage float64) []domain.Alert {
    if doc.Failed() {
        return nil
    }

    var alerts []domain.Alert
    external, reason := e.scorer.ScoreContent(ctx, doc.Text)
    external = domain.ClampScore(external)
    if external > AlertThreshold {
        alerts = append(alerts, domain.Alert{
            Title:    "AI Assessment",
            Severity: domain.SeverityMedium,
            Details:  reason,
            Filename: doc.Filename,
        })
    }

    outcome := rules.Evaluate(*doc, historicalAverage)
    alerts = append(alerts, outcome.Alerts...)
    doc.RiskScore = e.policy.Combine(external, outcome.Floor)

    slog.DebugContext(ctx, "document assessed",
        "filename", doc.Filename,
        "external_score", external,
        "rule_floor", outcome.Floor,
        "risk_score", doc.RiskScore,
        "alerts", len(alerts))
    return alerts
}
