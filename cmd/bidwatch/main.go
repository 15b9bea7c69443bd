package main

import (
    "context"
    "fmt"
    "log/slog"
    "os"
    "os/signal"
    "path/filepath"
    "syscall"

    "github.com/fatih/color"
    "github.com/spf13/cobra"

    "bidwatch/internal/adapters/llm"
    "bidwatch/internal/config"
    "bidwatch/internal/domain"
    "bidwatch/internal/logger"
    "bidwatch/internal/report"
    "bidwatch/internal/services/collusion"
    "bidwatch/internal/services/fusion"
    "bidwatch/internal/services/history"
    "bidwatch/internal/services/normalizer"
    "bidwatch/internal/services/scanner"
)

var (
    average     float64
    historyPath string
    jsonOutput  bool
    graphPath   string
    withSummary bool

    colorRed = color.New(color.FgRed, color.Bold)
)

func main() {
    rootCmd.AddCommand(scanCmd, historyCmd)
    if err := rootCmd.Execute(); err != nil {
        colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
        os.Exit(1)
    }
}

var rootCmd = &cobra.Command{
    Use:           "bidwatch",
    Short:         "Screen procurement bids for fraud signals",
    SilenceUsage:  true,
    SilenceErrors: true,
}

var scanCmd = &cobra.Command{
    Use:   "scan [files...]",
    Short: "Scan a batch of bid documents",
    Long: `Scan a batch of bid documents and print a risk report.

Examples:
  bidwatch scan bids/*.pdf --average 35000000
  bidwatch scan bids/*.pdf --history awards.csv --json
  bidwatch scan a.pdf b.pdf --graph pairs.dot`,
    Args: cobra.MinimumNArgs(1),
    RunE: runScan,
}

var historyCmd = &cobra.Command{
    Use:   "history [file.csv]",
    Short: "Check award history for winner rotation",
    Args:  cobra.ExactArgs(1),
    RunE:  runHistory,
}

func init() {
    scanCmd.Flags().Float64Var(&average, "average", 0, "historical average bid amount (default: history mean or PROJECT_VALUE)")
    scanCmd.Flags().StringVar(&historyPath, "history", "", "award history CSV")
    scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
    scanCmd.Flags().StringVar(&graphPath, "graph", "", "write the suspicious-pair graph as Graphviz DOT")
    scanCmd.Flags().BoolVar(&withSummary, "summary", false, "add an executive summary")
    historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "print alerts as JSON")
}

// setup loads configuration and sends logs to stderr so stdout stays clean
// for the report.
func setup() config.Config {
    cfg, _ := config.Load()
    slog.SetDefault(slog.New(logger.NewHandler(cfg, os.Stderr)))
    return cfg
}

func runScan(cmd *cobra.Command, args []string) error {
    cfg := setup()
    ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    ai := llm.FromConfig(cfg.LLM)
    svc := scanner.New(fusion.New(ai, nil), collusion.New(ai), cfg.ScanConcurrency)
    session := scanner.NewSession(svc)

    if historyPath != "" {
        table, err := readHistory(historyPath)
        if err != nil {
            return err
        }
        session.IngestHistory(table)
    }

    norm := normalizer.New()
    for _, path := range args {
        doc, err := normalizeFile(ctx, norm, path)
        if err != nil {
            return err
        }
        if _, err := session.Add(doc); err != nil {
            return err
        }
    }

    avg := average
    if avg <= 0 {
        avg = session.HistoricalAverage(cfg.ProjectValue)
    }
    if _, err := session.Scan(ctx, avg); err != nil {
        return err
    }

    docs, alerts, edges := session.Documents(), session.Alerts(), session.Edges()
    if graphPath != "" {
        if err := os.WriteFile(graphPath, []byte(report.DOT(docs, edges)), 0o644); err != nil {
            return fmt.Errorf("write graph: %w", err)
        }
    }
    var summary string
    if withSummary {
        summary = ai.Summarize(ctx, domain.SortAlerts(alerts), len(docs))
    }

    out := cmd.OutOrStdout()
    if jsonOutput {
        return report.JSON(out, docs, alerts, edges, summary)
    }
    report.Text(out, docs, alerts, edges)
    if summary != "" {
        fmt.Fprintf(out, "Summary\n  %s\n", summary)
    }
    return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
    setup()
    table, err := readHistory(args[0])
    if err != nil {
        return err
    }
    alerts := history.Analyze(table)
    out := cmd.OutOrStdout()
    if jsonOutput {
        return report.JSON(out, nil, alerts, nil, "")
    }
    if avg, ok := table.AverageAmount(); ok {
        fmt.Fprintf(out, "Rows: %d, mean award: %.2f\n", len(table.Rows), avg)
    }
    report.Text(out, nil, alerts, nil)
    return nil
}

func readHistory(path string) (domain.AwardTable, error) {
    f, err := os.Open(path)
    if err != nil {
        return domain.AwardTable{}, err
    }
    defer f.Close()
    table, err := history.ReadCSV(f)
    if err != nil {
        return table, fmt.Errorf("%s: %w", path, err)
    }
    return table, nil
}

func normalizeFile(ctx context.Context, norm *normalizer.Normalizer, path string) (domain.Document, error) {
    f, err := os.Open(path)
    if err != nil {
        return domain.Document{}, err
    }
    defer f.Close()
    return norm.Normalize(ctx, filepath.Base(path), f), nil
}
