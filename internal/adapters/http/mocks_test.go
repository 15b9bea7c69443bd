package httpadapter_test

import (
    "context"
    "fmt"
    "strings"
    "sync"

    "github.com/google/uuid"

    "bidwatch/internal/domain"
    "bidwatch/internal/ports"
    "bidwatch/internal/services/history"
)

type memScan struct {
    scan   ports.Scan
    docs   []domain.Document
    alerts []domain.Alert
    edges  []domain.Edge
    jobID  string
}

// memStore is an in-memory stand-in for the postgres adapter.
type memStore struct {
    mu      sync.Mutex
    scans   map[string]*memScan
    jobs    map[string]string // job id -> scan id
    history domain.AwardTable
}

func newMemStore() *memStore {
    return &memStore{scans: map[string]*memScan{}, jobs: map[string]string{}}
}

func (m *memStore) Create(_ context.Context, avg float64) (string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    id := uuid.NewString()
    m.scans[id] = &memScan{scan: ports.Scan{ID: id, Status: "queued", HistoricalAverage: avg}}
    return id, nil
}

func (m *memStore) get(id string) (*memScan, error) {
    s, ok := m.scans[id]
    if !ok {
        return nil, ports.ErrNotFound
    }
    return s, nil
}

func (m *memStore) Get(_ context.Context, id string) (ports.Scan, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, err := m.get(id)
    if err != nil {
        return ports.Scan{}, err
    }
    return s.scan, nil
}

func (m *memStore) AddDocument(_ context.Context, id string, doc domain.Document) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, err := m.get(id)
    if err != nil {
        return err
    }
    for _, d := range s.docs {
        if d.Filename == doc.Filename {
            return fmt.Errorf("%w: %s", ports.ErrDuplicate, doc.Filename)
        }
    }
    s.docs = append(s.docs, doc)
    return nil
}

func (m *memStore) Documents(_ context.Context, id string) ([]domain.Document, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, err := m.get(id)
    if err != nil {
        return nil, err
    }
    return append([]domain.Document(nil), s.docs...), nil
}

func (m *memStore) SaveResult(_ context.Context, id string, docs []*domain.Document, res domain.ScanResult) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, err := m.get(id)
    if err != nil {
        return err
    }
    for _, d := range docs {
        for i := range s.docs {
            if s.docs[i].Filename == d.Filename {
                s.docs[i].RiskScore = d.RiskScore
            }
        }
    }
    s.alerts = append(s.alerts, res.Alerts...)
    s.edges = res.Edges
    return nil
}

func (m *memStore) Alerts(_ context.Context, id string) ([]domain.Alert, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, err := m.get(id)
    if err != nil {
        return nil, err
    }
    return append([]domain.Alert(nil), s.alerts...), nil
}

func (m *memStore) Edges(_ context.Context, id string) ([]domain.Edge, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, err := m.get(id)
    if err != nil {
        return nil, err
    }
    return s.edges, nil
}

func (m *memStore) ReplaceHistory(_ context.Context, t domain.AwardTable) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.history = t
    return nil
}

func (m *memStore) History(context.Context) (domain.AwardTable, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.history, nil
}

func (m *memStore) Enqueue(_ context.Context, scanID string) (string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    jobID := uuid.NewString()
    m.jobs[jobID] = scanID
    m.scans[scanID].jobID = jobID
    m.scans[scanID].scan.Status = "queued"
    return jobID, nil
}

func (m *memStore) ClaimNext(context.Context) (ports.ScanJob, bool, error) {
    return ports.ScanJob{}, false, nil
}

func (m *memStore) UpdateScanProgress(_ context.Context, scanID string, p float64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.scans[scanID].scan.Progress = p
    return nil
}

func (m *memStore) finish(jobID, status, reason string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    scanID, ok := m.jobs[jobID]
    if !ok {
        return ports.ErrNotFound
    }
    s := m.scans[scanID]
    s.scan.Status = status
    s.scan.Error = reason
    if status == "completed" {
        s.scan.Progress = 1
        s.scan.AlertCount = len(s.alerts)
        s.scan.MaxRisk = 0
        for _, d := range s.docs {
            s.scan.MaxRisk = max(s.scan.MaxRisk, d.RiskScore)
        }
    }
    return nil
}

func (m *memStore) MarkCompleted(_ context.Context, jobID string) error {
    return m.finish(jobID, "completed", "")
}

func (m *memStore) MarkFailed(_ context.Context, jobID, reason string) error {
    return m.finish(jobID, "failed", reason)
}

func (m *memStore) StartJobForScan(_ context.Context, scanID string) (string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, err := m.get(scanID)
    if err != nil {
        return "", err
    }
    s.scan.Status = "running"
    return s.jobID, nil
}

func mustTable(csv string) domain.AwardTable {
    t, err := history.ReadCSV(strings.NewReader(csv))
    if err != nil {
        panic(err)
    }
    return t
}
