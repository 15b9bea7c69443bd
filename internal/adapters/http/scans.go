package httpadapter

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "mime/multipart"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/google/uuid"
    "github.com/oapi-codegen/runtime"

    "bidwatch/internal/domain"
    "bidwatch/internal/logger"
    "bidwatch/internal/report"
    scanrunner "bidwatch/internal/workers/scanrunner"
)

type postScanParams struct {
    Average *float64
    Wait    *bool
    Timeout *int
}

func bindPostScanParams(r *http.Request) (postScanParams, error) {
    var p postScanParams
    q := r.URL.Query()
    if err := runtime.BindQueryParameter("form", true, false, "average", q, &p.Average); err != nil {
        return p, err
    }
    if err := runtime.BindQueryParameter("form", true, false, "wait", q, &p.Wait); err != nil {
        return p, err
    }
    if err := runtime.BindQueryParameter("form", true, false, "timeout", q, &p.Timeout); err != nil {
        return p, err
    }
    return p, nil
}

// scanID binds and validates the {id} path parameter.
func scanID(r *http.Request) (string, error) {
    var id string
    err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
        runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
    if err != nil {
        return "", err
    }
    if _, err := uuid.Parse(id); err != nil {
        return "", fmt.Errorf("invalid scan id %q", id)
    }
    return id, nil
}

// resolveAverage prefers the request value, then the mean of stored award
// history, then the configured default.
func (s *Server) resolveAverage(ctx context.Context, explicit *float64) float64 {
    if explicit != nil && *explicit > 0 {
        return *explicit
    }
    if s.History != nil {
        table, err := s.History.History(ctx)
        if err != nil {
            slog.WarnContext(ctx, "history lookup failed", "error", err)
        } else if avg, ok := table.AverageAmount(); ok {
            return avg
        }
    }
    return s.DefaultAverage
}

func (s *Server) normalizeUpload(ctx context.Context, fh *multipart.FileHeader) (domain.Document, error) {
    f, err := fh.Open()
    if err != nil {
        return domain.Document{}, err
    }
    defer f.Close()
    doc := s.Normalizer.Normalize(ctx, fh.Filename, f)
    doc.UploadedAt = time.Now().UTC()
    return doc, nil
}

// postScan stores a batch of uploaded bids as a queued scan. With wait=true
// the scan runs inline and the response carries its results.
func (s *Server) postScan(w http.ResponseWriter, r *http.Request) {
    ctx := r.Context()
    params, err := bindPostScanParams(r)
    if err != nil {
        writeError(w, http.StatusBadRequest, err.Error())
        return
    }
    var files []*multipart.FileHeader
    if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
        if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
            writeError(w, http.StatusBadRequest, "invalid multipart body")
            return
        }
        files = r.MultipartForm.File["files"]
    }

    seen := make(map[string]bool, len(files))
    for _, fh := range files {
        if seen[fh.Filename] {
            writeError(w, http.StatusConflict, "duplicate filename "+fh.Filename)
            return
        }
        seen[fh.Filename] = true
    }

    id, err := s.Scans.Create(ctx, s.resolveAverage(ctx, params.Average))
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    ctx = logger.WithLogFields(ctx, logger.LogFields{ScanID: logger.Ptr(id), Component: "http"})
    for _, fh := range files {
        doc, err := s.normalizeUpload(ctx, fh)
        if err != nil {
            writeError(w, http.StatusBadRequest, err.Error())
            return
        }
        if err := s.Scans.AddDocument(ctx, id, doc); err != nil {
            writeRepoError(w, r, err)
            return
        }
    }
    if _, err := s.Jobs.Enqueue(ctx, id); err != nil {
        writeRepoError(w, r, err)
        return
    }

    if params.Wait == nil || !*params.Wait {
        writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": id})
        return
    }
    timeout := defaultWaitTimeout
    if params.Timeout != nil && *params.Timeout > 0 {
        timeout = time.Duration(*params.Timeout) * time.Second
    }
    waitCtx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()
    if err := scanrunner.ProcessInline(waitCtx, s.Jobs, s.Processor, id); err != nil {
        if errors.Is(err, context.DeadlineExceeded) {
            writeError(w, http.StatusGatewayTimeout, "scan did not finish in time")
            return
        }
        writeRepoError(w, r, err)
        return
    }
    s.writeScan(w, r, id, true)
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
    id, err := scanID(r)
    if err != nil {
        writeError(w, http.StatusNotFound, err.Error())
        return
    }
    s.writeScan(w, r, id, false)
}

func (s *Server) writeScan(w http.ResponseWriter, r *http.Request, id string, withResults bool) {
    ctx := r.Context()
    scan, err := s.Scans.Get(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    docs, err := s.Scans.Documents(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    resp := scanJSON{
        ID:                scan.ID,
        Status:            scan.Status,
        Progress:          scan.Progress,
        HistoricalAverage: scan.HistoricalAverage,
        AlertCount:        scan.AlertCount,
        MaxRisk:           scan.MaxRisk,
        Error:             scan.Error,
        Documents:         toDocumentsJSON(docs),
    }
    if withResults {
        alerts, err := s.Scans.Alerts(ctx, id)
        if err != nil {
            writeRepoError(w, r, err)
            return
        }
        edges, err := s.Scans.Edges(ctx, id)
        if err != nil {
            writeRepoError(w, r, err)
            return
        }
        resp.Alerts = toAlertsJSON(domain.SortAlerts(alerts))
        resp.Edges = toEdgesJSON(edges)
    }
    writeJSON(w, http.StatusOK, resp)
}

// postDocument is the vendor upload flow: one document is normalised, stored
// and scanned on its own straight away.
func (s *Server) postDocument(w http.ResponseWriter, r *http.Request) {
    id, err := scanID(r)
    if err != nil {
        writeError(w, http.StatusNotFound, err.Error())
        return
    }
    ctx := r.Context()
    scan, err := s.Scans.Get(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
        writeError(w, http.StatusBadRequest, "invalid multipart body")
        return
    }
    files := r.MultipartForm.File["file"]
    if len(files) != 1 {
        writeError(w, http.StatusBadRequest, "exactly one file is required")
        return
    }
    ctx = logger.WithLogFields(ctx, logger.LogFields{
        ScanID:    logger.Ptr(id),
        Filename:  logger.Ptr(files[0].Filename),
        Component: "http",
    })
    doc, err := s.normalizeUpload(ctx, files[0])
    if err != nil {
        writeError(w, http.StatusBadRequest, err.Error())
        return
    }
    doc.VendorID = r.FormValue("vendor_id")
    if err := s.Scans.AddDocument(ctx, id, doc); err != nil {
        writeRepoError(w, r, err)
        return
    }

    res, err := s.Scanner.Scan(ctx, []*domain.Document{&doc}, scan.HistoricalAverage)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    if err := s.Scans.SaveResult(ctx, id, []*domain.Document{&doc}, res); err != nil {
        writeRepoError(w, r, err)
        return
    }
    writeJSON(w, http.StatusCreated, map[string]any{
        "document": toDocumentJSON(doc),
        "alerts":   toAlertsJSON(res.Alerts),
    })
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
    id, err := scanID(r)
    if err != nil {
        writeError(w, http.StatusNotFound, err.Error())
        return
    }
    if _, err := s.Scans.Get(r.Context(), id); err != nil {
        writeRepoError(w, r, err)
        return
    }
    alerts, err := s.Scans.Alerts(r.Context(), id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, toAlertsJSON(domain.SortAlerts(alerts)))
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
    id, err := scanID(r)
    if err != nil {
        writeError(w, http.StatusNotFound, err.Error())
        return
    }
    ctx := r.Context()
    if _, err := s.Scans.Get(ctx, id); err != nil {
        writeRepoError(w, r, err)
        return
    }
    docs, err := s.Scans.Documents(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    edges, err := s.Scans.Edges(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    w.Header().Set("Content-Type", "text/vnd.graphviz")
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write([]byte(report.DOT(docs, edges)))
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
    id, err := scanID(r)
    if err != nil {
        writeError(w, http.StatusNotFound, err.Error())
        return
    }
    ctx := r.Context()
    if _, err := s.Scans.Get(ctx, id); err != nil {
        writeRepoError(w, r, err)
        return
    }
    docs, err := s.Scans.Documents(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    alerts, err := s.Scans.Alerts(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    summary := s.Summarizer.Summarize(ctx, domain.SortAlerts(alerts), len(docs))
    writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

type askRequest struct {
    Question string `json:"question"`
}

func (s *Server) postAsk(w http.ResponseWriter, r *http.Request) {
    id, err := scanID(r)
    if err != nil {
        writeError(w, http.StatusNotFound, err.Error())
        return
    }
    var req askRequest
    if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Question) == "" {
        writeError(w, http.StatusBadRequest, "question is required")
        return
    }
    ctx := r.Context()
    if _, err := s.Scans.Get(ctx, id); err != nil {
        writeRepoError(w, r, err)
        return
    }
    docs, err := s.Scans.Documents(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    alerts, err := s.Scans.Alerts(ctx, id)
    if err != nil {
        writeRepoError(w, r, err)
        return
    }
    answer := s.Assistant.Answer(ctx, req.Question, docs, alerts)
    writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
