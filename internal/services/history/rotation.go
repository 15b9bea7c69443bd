// Package history inspects historical award records for cartel rotation.
package history

import (
    "sort"
    "strings"

    "bidwatch/internal/domain"
)

const (
    WinnerColumn = "Winner"
    AmountColumn = "Amount"

    minRows = 5
    topN    = 3
)

// WinnerCount is how many awards one winner took.
type WinnerCount struct {
    Winner string
    Wins   int
}

// Analyze returns a Cartel Rotation alert when the top winners have
// near-equal win counts. Tables without a winner column or with too few rows
// carry no signal.
func Analyze(table domain.AwardTable) []domain.Alert {
    if !table.HasColumn(WinnerColumn) || len(table.Rows) <= minRows {
        return nil
    }

    top := TopWinners(table, topN)
    if len(top) < 2 {
        return nil
    }
    hi, lo := top[0].Wins, top[len(top)-1].Wins
    if hi-lo > 1 {
        return nil
    }

    names := make([]string, len(top))
    for i, w := range top {
        names[i] = w.Winner
    }
    return []domain.Alert{{
        Title:    "Cartel Rotation",
        Severity: domain.SeverityCritical,
        Details:  "Winners taking turns: " + strings.Join(names, ", ") + ".",
        Filename: domain.FilenameHistory,
    }}
}

// TopWinners counts wins per distinct winner, most frequent first. Ties keep
// first-seen order.
func TopWinners(table domain.AwardTable, n int) []WinnerCount {
    index := make(map[string]int)
    var counts []WinnerCount
    for _, r := range table.Rows {
        w := strings.TrimSpace(r.Winner)
        if w == "" {
            continue
        }
        if i, ok := index[w]; ok {
            counts[i].Wins++
            continue
        }
        index[w] = len(counts)
        counts = append(counts, WinnerCount{Winner: w, Wins: 1})
    }
    sort.SliceStable(counts, func(i, j int) bool { return counts[i].Wins > counts[j].Wins })
    if len(counts) > n {
        counts = counts[:n]
    }
    return counts
}
