// Package llm adapts an OpenAI-compatible chat endpoint to the scoring,
// narration, summary and assistant ports. Every method fails soft: errors
// become the documented fallback strings and never reach the caller.
package llm

import (
    "context"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/sethvargo/go-retry"
    "github.com/sony/gobreaker"

    "bidwatch/internal/domain"
)

const (
    NeutralScore = 50

    ReasonUnavailable = "AI Unavailable"
    ReasonContentErr  = "AI Error"
    ReasonTriggerErr  = "Error"

    VerdictFailed      = "AI Analysis Failed."
    SummaryUnavailable = "Summary unavailable."
    AnswerUnavailable  = "AI unavailable."
    AnswerFailed       = "Error processing question."

    ContentExcerptLen = 1500
    verdictExcerptLen = 500
    chatExcerptLen    = 300
)

const contentRubric = `Act as a Procurement Fraud Auditor. Analyze this bid document excerpt for risk.
DOCUMENT: "%s..."

SCORING CRITERIA:
- 0-20 (Safe): Professional, detailed, official contact info.
- 21-50 (Medium): Generic phrasing, minor details missing.
- 51-80 (High): Very short (<200 words), vague, spelling errors.
- 81-100 (Critical): Missing key sections, suspicious contact info, dummy bid.

OUTPUT JSON ONLY: { "score": <int>, "reason": "<string>" }`

const triggerPrompt = `Evaluate FRAUD TRIGGER: %s
EVIDENCE: "%s"
Assign Fraud Score (0-100). OUTPUT JSON ONLY: { "score": <int>, "reason": "<string>" }`

type assessment struct {
    Score  int    `json:"score" jsonschema:"minimum=0,maximum=100"`
    Reason string `json:"reason"`
}

// decoded tolerates a missing score.
type decoded struct {
    Score  *int    `json:"score"`
    Reason *string `json:"reason"`
}

type AgentConfig struct {
    MaxRetries       int
    Timeout          time.Duration // per attempt
    BaseBackoff      time.Duration
    BreakerThreshold int
    BreakerCooldown  time.Duration
}

func DefaultAgentConfig() AgentConfig {
    return AgentConfig{
        MaxRetries:       2,
        Timeout:          20 * time.Second,
        BaseBackoff:      500 * time.Millisecond,
        BreakerThreshold: 5,
        BreakerCooldown:  time.Minute,
    }
}

type Agent struct {
    client  Client
    cfg     AgentConfig
    breaker *gobreaker.CircuitBreaker
    schema  any
}

func NewAgent(client Client, cfg AgentConfig) *Agent {
    return &Agent{
        client:  client,
        cfg:     cfg,
        breaker: newBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
        schema:  GenerateSchema[assessment](),
    }
}

func (a *Agent) ScoreContent(ctx context.Context, excerpt string) (int, string) {
    prompt := fmt.Sprintf(contentRubric, Excerpt(excerpt, ContentExcerptLen))
    score, reason, err := a.assess(ctx, "bid_assessment", prompt, "AI Assessment")
    if err != nil {
        slog.WarnContext(ctx, "content scoring failed, using fallback", "error", err)
        return NeutralScore, ReasonContentErr
    }
    return score, reason
}

func (a *Agent) ScoreTrigger(ctx context.Context, trigger, evidence string) (int, string) {
    prompt := fmt.Sprintf(triggerPrompt, trigger, evidence)
    score, reason, err := a.assess(ctx, "trigger_assessment", prompt, "Trigger Assessment")
    if err != nil {
        slog.WarnContext(ctx, "trigger scoring failed, using fallback", "trigger", trigger, "error", err)
        return NeutralScore, ReasonTriggerErr
    }
    return score, reason
}

func (a *Agent) assess(ctx context.Context, schemaName, prompt, defaultReason string) (int, string, error) {
    var out decoded
    err := a.do(ctx, func(ctx context.Context) error {
        out = decoded{}
        return a.client.Chat(ctx, Request{
            Prompt:      prompt,
            SchemaName:  schemaName,
            Schema:      a.schema,
            Temperature: Temp(0.1),
        }, &out)
    })
    if err != nil {
        return 0, "", err
    }
    score, reason := NeutralScore, defaultReason
    if out.Score != nil {
        score = domain.ClampScore(*out.Score)
    }
    if out.Reason != nil && *out.Reason != "" {
        reason = *out.Reason
    }
    return score, reason, nil
}

func (a *Agent) Verdict(ctx context.Context, trigger, textA, textB string) string {
    prompt := fmt.Sprintf("Analyze fraud trigger: %s. Evidence A: %s. Evidence B: %s. Write 1 sentence verdict.",
        trigger, Excerpt(textA, verdictExcerptLen), Excerpt(textB, verdictExcerptLen))
    out, err := a.complete(ctx, prompt)
    if err != nil {
        slog.WarnContext(ctx, "verdict generation failed", "trigger", trigger, "error", err)
        return VerdictFailed
    }
    return out
}

func (a *Agent) Summarize(ctx context.Context, alerts []domain.Alert, docCount int) string {
    lines := make([]string, len(alerts))
    for i, al := range alerts {
        lines[i] = fmt.Sprintf("- %s: %s", al.Title, al.Details)
    }
    prompt := fmt.Sprintf("Write a 60-word executive summary for %d bids based on these alerts: %s",
        docCount, strings.Join(lines, "\n"))
    out, err := a.complete(ctx, prompt)
    if err != nil {
        slog.WarnContext(ctx, "summary generation failed", "error", err)
        return SummaryUnavailable
    }
    return out
}

func (a *Agent) Answer(ctx context.Context, question string, docs []domain.Document, alerts []domain.Alert) string {
    var b strings.Builder
    for _, d := range docs {
        fmt.Fprintf(&b, "File: %s | Risk: %d | Bid: %.2f | Content: %s...\n",
            d.Filename, d.RiskScore, d.BidAmount, Excerpt(d.Text, chatExcerptLen))
    }
    for _, al := range alerts {
        fmt.Fprintf(&b, "Alert: %s [%s] %s (%s)\n", al.Title, al.Severity, al.Details, al.Filename)
    }
    prompt := fmt.Sprintf("You are the bid review assistant. Answer based ONLY on this data:\n%s\nUSER QUESTION: %q",
        b.String(), question)
    out, err := a.complete(ctx, prompt)
    if err != nil {
        slog.WarnContext(ctx, "assistant answer failed", "error", err)
        return AnswerFailed
    }
    return out
}

func (a *Agent) complete(ctx context.Context, prompt string) (string, error) {
    var out string
    err := a.do(ctx, func(ctx context.Context) error {
        var err error
        out, err = a.client.Complete(ctx, prompt)
        return err
    })
    return strings.TrimSpace(out), err
}

// do runs fn behind the circuit breaker with per-attempt timeouts and
// exponential backoff on retryable errors.
func (a *Agent) do(ctx context.Context, fn func(ctx context.Context) error) error {
    base := a.cfg.BaseBackoff
    if base <= 0 {
        base = 500 * time.Millisecond
    }
    maxRetries := a.cfg.MaxRetries
    if maxRetries < 0 {
        maxRetries = 0
    }
    backoff := retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(base))

    _, err := a.breaker.Execute(func() (any, error) {
        return nil, retry.Do(ctx, backoff, func(ctx context.Context) error {
            attemptCtx := ctx
            if a.cfg.Timeout > 0 {
                var cancel context.CancelFunc
                attemptCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
                defer cancel()
            }
            err := fn(attemptCtx)
            if IsRetryable(ctx, err) {
                return retry.RetryableError(err)
            }
            return err
        })
    })
    return err
}

// Excerpt returns at most n runes of s.
func Excerpt(s string, n int) string {
    if len(s) <= n {
        return s
    }
    r := []rune(s)
    if len(r) <= n {
        return s
    }
    return string(r[:n])
}
