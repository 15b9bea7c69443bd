package httpadapter

import (
    "net/http"
    "strings"

    "bidwatch/internal/services/history"
)

// postHistory replaces the stored award history with an uploaded CSV and
// reports any rotation pattern in it. The CSV is either the raw body or a
// multipart "file" field.
func (s *Server) postHistory(w http.ResponseWriter, r *http.Request) {
    ctx := r.Context()
    body := r.Body
    if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
        f, _, err := r.FormFile("file")
        if err != nil {
            writeError(w, http.StatusBadRequest, "file is required")
            return
        }
        defer f.Close()
        body = f
    }
    table, err := history.ReadCSV(body)
    if err != nil {
        writeError(w, http.StatusBadRequest, err.Error())
        return
    }
    if err := s.History.ReplaceHistory(ctx, table); err != nil {
        writeRepoError(w, r, err)
        return
    }
    resp := map[string]any{
        "rows":   len(table.Rows),
        "alerts": toAlertsJSON(history.Analyze(table)),
    }
    if avg, ok := table.AverageAmount(); ok {
        resp["average"] = avg
    }
    writeJSON(w, http.StatusOK, resp)
}

type triggerRequest struct {
    Trigger  string `json:"trigger"`
    Evidence string `json:"evidence"`
}

func (s *Server) postTriggerScore(w http.ResponseWriter, r *http.Request) {
    var req triggerRequest
    if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Trigger) == "" {
        writeError(w, http.StatusBadRequest, "trigger is required")
        return
    }
    score, reason := s.Scorer.ScoreTrigger(r.Context(), req.Trigger, req.Evidence)
    writeJSON(w, http.StatusOK, map[string]any{"score": score, "reason": reason})
}
