package scanner_test

import (
    "context"

    . "github.com/onsi/ginkgo/v2"
    . "github.com/onsi/gomega"

    "bidwatch/internal/adapters/llm"
    "bidwatch/internal/domain"
    "bidwatch/internal/ports"
    "bidwatch/internal/services/collusion"
    "bidwatch/internal/services/fusion"
    "bidwatch/internal/services/scanner"
)

const pipeTender = "Technical specification for supply of ductile iron pipes class K9 conforming to IS 8329, " +
    "including laying, jointing, testing and commissioning of the water distribution network in ward twelve. " +
    "Contact tenders@hydroworks.in for clarifications. Warranty thirty six months."

const cateringBid = "Proposal for catering services at the district hospital canteen covering breakfast, lunch " +
    "and dinner menus with weekly hygiene audits. Contact office@annapurna-foods.in. Bid Amount: INR 30,00,000"

func newService(scorer ports.ContentScorer) *scanner.Service {
    return scanner.New(fusion.New(scorer, nil), collusion.New(nil), 4)
}

func countTitle(alerts []domain.Alert, title string) int {
    n := 0
    for _, a := range alerts {
        if a.Title == title {
            n++
        }
    }
    return n
}

var _ = Describe("Service", func() {
    var ctx context.Context

    BeforeEach(func() {
        ctx = context.Background()
    })

    It("flags two near-identical specs differing only in price", func() {
        a := &domain.Document{Filename: "hydro-a.pdf", Text: pipeTender + " Grand Total: INR 45,00,000", BidAmount: 4_500_000}
        b := &domain.Document{Filename: "hydro-b.pdf", Text: pipeTender + " Grand Total: INR 46,20,000", BidAmount: 4_620_000}

        res, err := newService(&mockScorer{}).Scan(ctx, []*domain.Document{a, b}, 5_000_000)

        Expect(err).NotTo(HaveOccurred())
        Expect(a.RiskScore).To(Equal(98))
        Expect(b.RiskScore).To(Equal(98))
        Expect(countTitle(res.Alerts, "Collusion")).To(Equal(1))
        Expect(res.Edges).To(ConsistOf(domain.Edge{A: "hydro-a.pdf", B: "hydro-b.pdf", Label: "match"}))
    })

    It("keeps per-document alerts in batch order before collusion alerts", func() {
        scorer := &mockScorer{scores: map[string]int{"catering": 65}}
        zero := &domain.Document{Filename: "zero.pdf", Text: "no price given in this short bid document text at all here"}
        cater := &domain.Document{Filename: "cater.pdf", Text: cateringBid, BidAmount: 3_000_000}

        res, err := newService(scorer).Scan(ctx, []*domain.Document{zero, cater}, 0)

        Expect(err).NotTo(HaveOccurred())
        Expect(res.Alerts).To(HaveLen(2))
        Expect(res.Alerts[0].Filename).To(Equal("zero.pdf"))
        Expect(res.Alerts[0].Title).To(Equal("Zero Financials"))
        Expect(res.Alerts[1]).To(Equal(domain.Alert{
            Title: "AI Assessment", Severity: domain.SeverityMedium, Details: "marker catering", Filename: "cater.pdf",
        }))
        Expect(res.Edges).To(BeEmpty())
        Expect(zero.RiskScore).To(Equal(95))
        Expect(cater.RiskScore).To(Equal(65))
    })

    It("never runs collusion for a single document", func() {
        doc := &domain.Document{Filename: "solo.pdf", Text: pipeTender, BidAmount: 100}
        res, err := newService(&mockScorer{}).Scan(ctx, []*domain.Document{doc}, 0)

        Expect(err).NotTo(HaveOccurred())
        Expect(res.Edges).To(BeEmpty())
        Expect(countTitle(res.Alerts, "Collusion")).To(BeZero())
        Expect(doc.RiskScore).To(Equal(10))
    })

    It("skips failed documents without aborting the batch", func() {
        scorer := &mockScorer{}
        broken := &domain.Document{Filename: "broken.pdf", Err: "unreadable"}
        ok := &domain.Document{Filename: "ok.pdf", Text: cateringBid, BidAmount: 3_000_000}

        res, err := newService(scorer).Scan(ctx, []*domain.Document{broken, ok}, 0)

        Expect(err).NotTo(HaveOccurred())
        Expect(broken.RiskScore).To(BeZero())
        Expect(res.Alerts).To(BeEmpty())
        Expect(scorer.calls).To(Equal(1))
    })

    It("uses the neutral fallback when the external scorer is unavailable", func() {
        doc := &domain.Document{Filename: "a.pdf", Text: cateringBid, BidAmount: 3_000_000}
        res, err := newService(llm.Unavailable{}).Scan(ctx, []*domain.Document{doc}, 0)

        Expect(err).NotTo(HaveOccurred())
        Expect(doc.RiskScore).To(Equal(50))
        Expect(res.Alerts).To(ConsistOf(domain.Alert{
            Title: "AI Assessment", Severity: domain.SeverityMedium, Details: "AI Unavailable", Filename: "a.pdf",
        }))
    })

    It("keeps every score within 0..100", func() {
        scorer := &mockScorer{scores: map[string]int{"catering": 300}}
        docs := []*domain.Document{
            {Filename: "1.pdf", Text: cateringBid, BidAmount: 1},
            {Filename: "2.pdf", Text: "tiny", Emails: []string{"x@gmail.com"}},
        }
        _, err := newService(scorer).Scan(ctx, docs, 5_000_000)

        Expect(err).NotTo(HaveOccurred())
        for _, d := range docs {
            Expect(d.RiskScore).To(BeNumerically(">=", 0))
            Expect(d.RiskScore).To(BeNumerically("<=", 100))
        }
    })

    DescribeTable("rejects structurally invalid batches",
        func(docs []*domain.Document) {
            _, err := newService(&mockScorer{}).Scan(ctx, docs, 0)
            Expect(err).To(MatchError(scanner.ErrInvalidBatch))
        },
        Entry("nil document", []*domain.Document{nil}),
        Entry("duplicate filename", []*domain.Document{{Filename: "a.pdf"}, {Filename: "a.pdf"}}),
    )
})
