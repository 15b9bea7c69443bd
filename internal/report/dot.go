// Package report renders scan results for reviewers.
package report

import (
    "fmt"
    "strings"

    "bidwatch/internal/domain"
)

type palette struct{ fill, font string }

var bandColours = map[domain.Band]palette{
    domain.BandReject: {"#ffcccc", "#990000"},
    domain.BandReview: {"#fff5cc", "#996600"},
    domain.BandSafe:   {"#ccffcc", "#006600"},
}

// DOT renders the suspicious-pair graph as Graphviz source. Nodes are
// coloured by risk band.
func DOT(docs []domain.Document, edges []domain.Edge) string {
    var b strings.Builder
    b.WriteString("digraph {\n")
    b.WriteString("  graph [rankdir=\"LR\", bgcolor=\"transparent\", splines=curved, ranksep=2.0];\n")
    b.WriteString("  node [shape=\"note\", style=\"filled\", fontname=\"Arial\", fontsize=10, penwidth=0];\n")
    b.WriteString("  edge [fontname=\"Arial\", fontsize=9, arrowsize=0.8];\n")
    for _, d := range docs {
        p := bandColours[bandForGraph(d.RiskScore)]
        label := fmt.Sprintf("%s\\nRisk: %d", escape(d.Filename), d.RiskScore)
        fmt.Fprintf(&b, "  \"%s\" [label=\"%s\" fillcolor=\"%s\" fontcolor=\"%s\"];\n", escape(d.Filename), label, p.fill, p.font)
    }
    for _, e := range edges {
        fmt.Fprintf(&b, "  \"%s\" -> \"%s\" [label=\"%s\" color=\"#ff0000\" penwidth=2.5 style=\"dashed\"];\n",
            escape(e.A), escape(e.B), escape(e.Label))
    }
    b.WriteString("}\n")
    return b.String()
}

// The graph uses strict thresholds, unlike the card bands.
func bandForGraph(score int) domain.Band {
    switch {
    case score > 75:
        return domain.BandReject
    case score > 40:
        return domain.BandReview
    default:
        return domain.BandSafe
    }
}

// escape quotes s for a DOT double-quoted string. Non-ASCII passes through
// as UTF-8, which Graphviz reads natively.
func escape(s string) string {
    return dotEscaper.Replace(s)
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")
