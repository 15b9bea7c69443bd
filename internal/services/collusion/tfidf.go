package collusion

import (
    "errors"
    "math"
    "regexp"
    "strings"
)

// Unicode letters with their combining marks, digits and underscore; two or
// more per token.
var tokenRe = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

var errEmptyVocabulary = errors.New("empty vocabulary; documents may only contain stop words")

type vector map[string]float64

// vectorize builds L2-normalised TF-IDF vectors with smoothed idf
// ln((1+n)/(1+df)) + 1.
func vectorize(texts []string) ([]vector, error) {
    counts := make([]map[string]int, len(texts))
    df := make(map[string]int)
    for i, t := range texts {
        counts[i] = termCounts(t)
        for term := range counts[i] {
            df[term]++
        }
    }
    if len(df) == 0 {
        return nil, errEmptyVocabulary
    }

    n := float64(len(texts))
    vecs := make([]vector, len(texts))
    for i, tc := range counts {
        v := make(vector, len(tc))
        var norm float64
        for term, c := range tc {
            w := float64(c) * (math.Log((1+n)/(1+float64(df[term]))) + 1)
            v[term] = w
            norm += w * w
        }
        if norm > 0 {
            norm = math.Sqrt(norm)
            for term := range v {
                v[term] /= norm
            }
        }
        vecs[i] = v
    }
    return vecs, nil
}

func termCounts(text string) map[string]int {
    out := make(map[string]int)
    for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
        if _, stop := stopWords[tok]; stop {
            continue
        }
        out[tok]++
    }
    return out
}

// cosine assumes both vectors are L2-normalised.
func cosine(a, b vector) float64 {
    if len(b) < len(a) {
        a, b = b, a
    }
    var dot float64
    for term, w := range a {
        dot += w * b[term]
    }
    return dot
}
