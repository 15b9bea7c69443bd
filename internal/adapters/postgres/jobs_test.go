package postgres_test

import (
    "context"

    . "github.com/onsi/ginkgo/v2"
    . "github.com/onsi/gomega"

    "bidwatch/internal/adapters/postgres"
    "bidwatch/internal/domain"
    "bidwatch/internal/ports"
)

var _ = Describe("scan jobs", func() {
    var (
        ctx context.Context
        db  *postgres.DB
    )

    BeforeEach(func() {
        ctx = context.Background()
        db = openTestDB(ctx)
        // Earlier runs may leave queued jobs behind.
        _, err := db.Pool.Exec(ctx, `UPDATE scan_jobs SET status='failed' WHERE status='queued'`)
        Expect(err).NotTo(HaveOccurred())
    })

    newScan := func(docs ...domain.Document) string {
        id, err := db.Create(ctx, 1_000_000)
        Expect(err).NotTo(HaveOccurred())
        for _, d := range docs {
            Expect(db.AddDocument(ctx, id, d)).To(Succeed())
        }
        return id
    }

    It("rejects a duplicate filename within a scan", func() {
        id := newScan(domain.Document{Filename: "a.pdf"})
        err := db.AddDocument(ctx, id, domain.Document{Filename: "a.pdf"})
        Expect(err).To(MatchError(ports.ErrDuplicate))
    })

    It("returns ErrNotFound when enqueuing an unknown scan", func() {
        _, err := db.Enqueue(ctx, "00000000-0000-0000-0000-000000000000")
        Expect(err).To(MatchError(ports.ErrNotFound))
    })

    It("claims a queued job once and marks the scan running", func() {
        id := newScan(domain.Document{Filename: "a.pdf"})
        jobID, err := db.Enqueue(ctx, id)
        Expect(err).NotTo(HaveOccurred())

        job, found, err := db.ClaimNext(ctx)
        Expect(err).NotTo(HaveOccurred())
        Expect(found).To(BeTrue())
        Expect(job).To(Equal(ports.ScanJob{ID: jobID, ScanID: id}))

        _, found, err = db.ClaimNext(ctx)
        Expect(err).NotTo(HaveOccurred())
        Expect(found).To(BeFalse())

        scan, err := db.Get(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        Expect(scan.Status).To(Equal("running"))
    })

    It("records the failure reason on the scan and clears it on rescan", func() {
        id := newScan(domain.Document{Filename: "a.pdf"})
        _, err := db.Enqueue(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        jobID, err := db.StartJobForScan(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        Expect(db.MarkFailed(ctx, jobID, "llm unavailable")).To(Succeed())

        scan, err := db.Get(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        Expect(scan.Status).To(Equal("failed"))
        Expect(scan.Error).To(Equal("llm unavailable"))

        _, err = db.Enqueue(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        scan, err = db.Get(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        Expect(scan.Status).To(Equal("queued"))
        Expect(scan.Error).To(BeEmpty())
    })

    It("stamps alert count and highest score when a scan completes", func() {
        id := newScan(domain.Document{Filename: "a.pdf"}, domain.Document{Filename: "b.pdf"})
        _, err := db.Enqueue(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        jobID, err := db.StartJobForScan(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        Expect(db.UpdateScanProgress(ctx, id, 3)).To(Succeed())

        docs := []*domain.Document{{Filename: "a.pdf", RiskScore: 40}, {Filename: "b.pdf", RiskScore: 95}}
        res := domain.ScanResult{Alerts: []domain.Alert{
            {Title: "Zero Financials", Severity: domain.SeverityCritical, Filename: "b.pdf"},
            {Title: "Generic Email", Severity: domain.SeverityMedium, Filename: "a.pdf"},
        }}
        Expect(db.SaveResult(ctx, id, docs, res)).To(Succeed())

        scan, err := db.Get(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        Expect(scan.Progress).To(Equal(1.0))

        Expect(db.MarkCompleted(ctx, jobID)).To(Succeed())
        scan, err = db.Get(ctx, id)
        Expect(err).NotTo(HaveOccurred())
        Expect(scan.Status).To(Equal("completed"))
        Expect(scan.AlertCount).To(Equal(2))
        Expect(scan.MaxRisk).To(Equal(95))
    })
})
