// Package rules holds the deterministic bid checks. Each check may raise a
// document's score floor and emit one alert; floors compose by maximum.
package rules

import (
    "fmt"
    "math"
    "strings"

    "golang.org/x/net/publicsuffix"

    "bidwatch/internal/domain"
)

const (
    FloorZeroFinancials   = 95
    FloorPredatoryPricing = 80
    FloorGenericEmail     = 55

    // PredatoryDeviation is the percentage below the historical average at
    // which a bid is flagged.
    PredatoryDeviation = -30.0
)

// FreeMailMarkers are substrings of consumer mail domains.
var FreeMailMarkers = []string{"gmail", "yahoo", "hotmail", "outlook", "rediffmail"}

type Outcome struct {
    Floor  int
    Alerts []domain.Alert
}

func (o *Outcome) raise(floor int, a domain.Alert) {
    if floor > o.Floor {
        o.Floor = floor
    }
    o.Alerts = append(o.Alerts, a)
}

// Evaluate runs every check against doc. It does not mutate doc.
func Evaluate(doc domain.Document, historicalAverage float64) Outcome {
    var out Outcome

    if doc.BidAmount == 0 {
        out.raise(FloorZeroFinancials, domain.Alert{
            Title:    "Zero Financials",
            Severity: domain.SeverityCritical,
            Details:  "Bid amount 0 or missing.",
            Filename: doc.Filename,
        })
    } else if historicalAverage > 0 {
        deviation := Deviation(doc.BidAmount, historicalAverage)
        if deviation < PredatoryDeviation {
            out.raise(FloorPredatoryPricing, domain.Alert{
                Title:    "Predatory Pricing",
                Severity: domain.SeverityCritical,
                Details:  fmt.Sprintf("Bid %.1f%% below estimate.", math.Abs(deviation)),
                Filename: doc.Filename,
            })
        }
    }

    if len(doc.Emails) > 0 {
        domainName := EmailDomain(doc.Emails[0])
        if IsFreeMail(domainName) {
            details := "Using " + domainName
            if reg, err := publicsuffix.EffectiveTLDPlusOne(domainName); err == nil && reg != domainName {
                details += " (" + reg + ")"
            }
            out.raise(FloorGenericEmail, domain.Alert{
                Title:    "Generic Email",
                Severity: domain.SeverityMedium,
                Details:  details,
                Filename: doc.Filename,
            })
        }
    }

    return out
}

// Deviation is the percentage difference of amount from average.
func Deviation(amount, average float64) float64 {
    return (amount - average) / average * 100
}

// EmailDomain returns the lowercased part after the last '@'.
func EmailDomain(email string) string {
    if i := strings.LastIndex(email, "@"); i >= 0 {
        email = email[i+1:]
    }
    return strings.ToLower(email)
}

func IsFreeMail(domainName string) bool {
    for _, m := range FreeMailMarkers {
        if strings.Contains(domainName, m) {
            return true
        }
    }
    return false
}
