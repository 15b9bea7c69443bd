package main

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"

    httpadapter "bidwatch/internal/adapters/http"
    "bidwatch/internal/adapters/llm"
    pg "bidwatch/internal/adapters/postgres"
    "bidwatch/internal/config"
    "bidwatch/internal/logger"
    "bidwatch/internal/services/collusion"
    "bidwatch/internal/services/fusion"
    "bidwatch/internal/services/normalizer"
    scansvc "bidwatch/internal/services/scanner"
    scanworker "bidwatch/internal/workers/scanrunner"
)

func main() {
    cfg, err := config.Load()
    logger.Setup(cfg)
    if err != nil {
        slog.Warn("config", "error", err)
    }
    if cfg.DatabaseURL == "" {
        slog.Error("DATABASE_URL is required for Postgres adapters")
        os.Exit(1)
    }

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    db, err := pg.Connect(ctx, cfg.DatabaseURL)
    if err != nil {
        slog.Error("db connect failed", "error", err)
        os.Exit(1)
    }
    defer db.Close()
    if err := db.Migrate(ctx); err != nil {
        slog.Error("db migrate failed", "error", err)
        os.Exit(1)
    }

    ai := llm.FromConfig(cfg.LLM)
    scanner := scansvc.New(fusion.New(ai, nil), collusion.New(ai), cfg.ScanConcurrency)
    processor := scanworker.Processor{Scans: db, Jobs: db, Scanner: scanner}

    srv := httpadapter.New(httpadapter.Deps{
        Scans:          db,
        History:        db,
        Jobs:           db,
        Processor:      processor,
        Scanner:        scanner,
        Normalizer:     normalizer.New(),
        Scorer:         ai,
        Summarizer:     ai,
        Assistant:      ai,
        DefaultAverage: cfg.ProjectValue,
    })
    r := chi.NewRouter()
    r.Mount("/", srv.Routes())

    // Optional background job workers
    if cfg.ScanWorkers > 0 {
        scanworker.Run(ctx, db, processor, cfg.ScanWorkers, 500*time.Millisecond)
        slog.Info("scan workers started", "workers", cfg.ScanWorkers)
    }

    httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
    errCh := make(chan error, 1)
    go func() { errCh <- httpSrv.ListenAndServe() }()
    slog.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        slog.Info("shutting down", "signal", sig.String())
        cancel()
        shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
        defer done()
        if err := httpSrv.Shutdown(shutdownCtx); err != nil {
            slog.Error("shutdown failed", "error", err)
        }
    case err := <-errCh:
        if !errors.Is(err, http.ErrServerClosed) {
            slog.Error("server error", "error", err)
            os.Exit(1)
        }
    }
}
