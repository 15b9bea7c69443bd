package llm

import (
    "context"

    "bidwatch/internal/domain"
)

// Unavailable stands in when no endpoint is configured.
type Unavailable struct{}

func (Unavailable) ScoreContent(context.Context, string) (int, string) {
    return NeutralScore, ReasonUnavailable
}

func (Unavailable) ScoreTrigger(context.Context, string, string) (int, string) {
    return NeutralScore, ReasonUnavailable
}

func (Unavailable) Verdict(_ context.Context, trigger, _, _ string) string {
    return "Detected " + trigger + "."
}

func (Unavailable) Summarize(context.Context, []domain.Alert, int) string {
    return SummaryUnavailable
}

func (Unavailable) Answer(context.Context, string, []domain.Document, []domain.Alert) string {
    return AnswerUnavailable
}
