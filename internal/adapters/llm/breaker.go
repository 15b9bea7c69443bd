package llm

import (
    "log/slog"
    "time"

    "github.com/sony/gobreaker"
)

// newBreaker trips after threshold consecutive failed calls and lets one
// trial call through once cooldown has passed. A threshold of zero never trips.
func newBreaker(threshold int, cooldown time.Duration) *gobreaker.CircuitBreaker {
    return gobreaker.NewCircuitBreaker(gobreaker.Settings{
        Name:        "llm",
        MaxRequests: 1,
        Timeout:     cooldown,
        ReadyToTrip: func(c gobreaker.Counts) bool {
            return threshold > 0 && c.ConsecutiveFailures >= uint32(threshold)
        },
        OnStateChange: func(name string, from, to gobreaker.State) {
            slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
        },
    })
}
