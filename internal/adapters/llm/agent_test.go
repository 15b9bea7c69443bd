package llm_test

import (
    "context"
    "errors"
    "strings"
    "time"

    . "github.com/onsi/ginkgo/v2"
    . "github.com/onsi/gomega"

    "bidwatch/internal/adapters/llm"
    "bidwatch/internal/config"
    "bidwatch/internal/domain"
)

func testConfig() llm.AgentConfig {
    return llm.AgentConfig{
        MaxRetries:       1,
        Timeout:          time.Second,
        BaseBackoff:      time.Millisecond,
        BreakerThreshold: 2,
        BreakerCooldown:  time.Hour,
    }
}

var _ = Describe("Agent", func() {
    var (
        ctx    context.Context
        client *mockClient
        agent  *llm.Agent
    )

    BeforeEach(func() {
        ctx = context.Background()
        client = &mockClient{}
        agent = llm.NewAgent(client, testConfig())
    })

    Describe("ScoreContent", func() {
        It("returns the model's score and reason", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return `{"score": 72, "reason": "Vague scope"}`, nil
            }
            score, reason := agent.ScoreContent(ctx, "bid text")
            Expect(score).To(Equal(72))
            Expect(reason).To(Equal("Vague scope"))
        })

        It("sends at most 1500 characters of the document", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return `{"score": 10, "reason": "ok"}`, nil
            }
            agent.ScoreContent(ctx, strings.Repeat("#", 5000))
            Expect(strings.Count(client.lastPrompt, "#")).To(Equal(1500))
        })

        It("defaults a missing score to neutral", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return `{"reason": "unsure"}`, nil
            }
            score, reason := agent.ScoreContent(ctx, "bid")
            Expect(score).To(Equal(50))
            Expect(reason).To(Equal("unsure"))
        })

        It("clamps out-of-range scores", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return `{"score": 400, "reason": "x"}`, nil
            }
            score, _ := agent.ScoreContent(ctx, "bid")
            Expect(score).To(Equal(100))
        })

        It("falls back to 50 on failure after retrying", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return "", errors.New("connection reset")
            }
            score, reason := agent.ScoreContent(ctx, "bid")
            Expect(score).To(Equal(50))
            Expect(reason).To(Equal(llm.ReasonContentErr))
            Expect(client.chatCalls).To(Equal(2))
        })

        It("does not retry malformed output", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return `not json`, nil
            }
            score, _ := agent.ScoreContent(ctx, "bid")
            Expect(score).To(Equal(50))
            Expect(client.chatCalls).To(Equal(1))
        })

        It("retries after a slow attempt hits its own timeout", func() {
            cfg := testConfig()
            cfg.Timeout = 20 * time.Millisecond
            agent = llm.NewAgent(client, cfg)
            client.chatFn = func(ctx context.Context, _ llm.Request) (string, error) {
                if client.chatCalls == 1 {
                    <-ctx.Done()
                    return "", ctx.Err()
                }
                return `{"score": 72, "reason": "Vague scope"}`, nil
            }

            score, reason := agent.ScoreContent(ctx, "bid")
            Expect(score).To(Equal(72))
            Expect(reason).To(Equal("Vague scope"))
            Expect(client.chatCalls).To(Equal(2))
        })

        It("stops calling the endpoint once the breaker opens", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return "", errors.New("down")
            }
            agent.ScoreContent(ctx, "a")
            agent.ScoreContent(ctx, "b")
            calls := client.chatCalls

            score, reason := agent.ScoreContent(ctx, "c")
            Expect(score).To(Equal(50))
            Expect(reason).To(Equal(llm.ReasonContentErr))
            Expect(client.chatCalls).To(Equal(calls))
        })
    })

    Describe("ScoreTrigger", func() {
        It("uses the trigger fallback on failure", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return "", errors.New("boom")
            }
            score, reason := agent.ScoreTrigger(ctx, "Round bid amount", "INR 1,00,00,000")
            Expect(score).To(Equal(50))
            Expect(reason).To(Equal(llm.ReasonTriggerErr))
        })

        It("includes trigger and evidence in the prompt", func() {
            client.chatFn = func(context.Context, llm.Request) (string, error) {
                return `{"score": 61, "reason": "suspicious"}`, nil
            }
            score, _ := agent.ScoreTrigger(ctx, "Round bid amount", "INR 1,00,00,000")
            Expect(score).To(Equal(61))
            Expect(client.lastPrompt).To(ContainSubstring("Round bid amount"))
            Expect(client.lastPrompt).To(ContainSubstring("INR 1,00,00,000"))
        })
    })

    Describe("free-text capabilities", func() {
        It("returns the trimmed verdict", func() {
            client.completeFn = func(context.Context, string) (string, error) {
                return "  Both bids share boilerplate.\n", nil
            }
            Expect(agent.Verdict(ctx, "Collusion", "a", "b")).To(Equal("Both bids share boilerplate."))
        })

        It("falls back on verdict failure", func() {
            client.completeFn = func(context.Context, string) (string, error) {
                return "", errors.New("timeout")
            }
            Expect(agent.Verdict(ctx, "Collusion", "a", "b")).To(Equal(llm.VerdictFailed))
        })

        It("lists alerts in the summary prompt", func() {
            client.completeFn = func(context.Context, string) (string, error) { return "Summary.", nil }
            alerts := []domain.Alert{{Title: "Zero Financials", Details: "Bid amount 0 or missing."}}

            Expect(agent.Summarize(ctx, alerts, 3)).To(Equal("Summary."))
            Expect(client.lastPrompt).To(ContainSubstring("for 3 bids"))
            Expect(client.lastPrompt).To(ContainSubstring("- Zero Financials: Bid amount 0 or missing."))
        })

        It("falls back on assistant failure", func() {
            client.completeFn = func(context.Context, string) (string, error) {
                return "", errors.New("boom")
            }
            docs := []domain.Document{{Filename: "a.pdf", RiskScore: 98, Text: "text"}}
            Expect(agent.Answer(ctx, "which bid is riskiest?", docs, nil)).To(Equal(llm.AnswerFailed))
            Expect(client.lastPrompt).To(ContainSubstring("File: a.pdf | Risk: 98"))
        })
    })
})

var _ = Describe("Unavailable", func() {
    It("returns the neutral fallbacks", func() {
        u := llm.Unavailable{}
        ctx := context.Background()

        score, reason := u.ScoreContent(ctx, "x")
        Expect(score).To(Equal(50))
        Expect(reason).To(Equal("AI Unavailable"))
        score, _ = u.ScoreTrigger(ctx, "t", "e")
        Expect(score).To(Equal(50))
        Expect(u.Verdict(ctx, "Collusion", "a", "b")).To(Equal("Detected Collusion."))
        Expect(u.Summarize(ctx, nil, 0)).To(Equal("Summary unavailable."))
        Expect(u.Answer(ctx, "q", nil, nil)).To(Equal("AI unavailable."))
    })
})

var _ = Describe("FromConfig", func() {
    It("returns Unavailable without an API key", func() {
        Expect(llm.FromConfig(config.LLMConfig{})).To(Equal(llm.Unavailable{}))
    })

    It("returns an Agent with an API key", func() {
        Expect(llm.FromConfig(config.LLMConfig{APIKey: "k", Model: "m"})).To(BeAssignableToTypeOf(&llm.Agent{}))
    })
})

var _ = Describe("NewClient", func() {
    It("requires an API key", func() {
        c, err := llm.NewClient(llm.Config{})
        Expect(err).To(HaveOccurred())
        Expect(c).To(BeNil())
    })
})

var _ = Describe("Excerpt", func() {
    It("cuts on rune boundaries", func() {
        Expect(llm.Excerpt("₹₹₹₹", 2)).To(Equal("₹₹"))
        Expect(llm.Excerpt("abc", 5)).To(Equal("abc"))
    })
})
