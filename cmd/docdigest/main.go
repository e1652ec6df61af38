package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docdigest/internal/config"
	"github.com/xxxsen/docdigest/internal/schedule"
	"github.com/xxxsen/docdigest/internal/service"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	errColor    = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
)

func main() {
	var configPath string
	var jsonOut bool

	rootCmd := &cobra.Command{
		Use:           "docdigest",
		Short:         "chunk, summarize and search large documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (json or yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as json")

	withApp := func(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a)
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "segment, summarize and index documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				items, err := a.documents.IngestBatch(ctx, args)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), items)
				}
				return printIngest(cmd.OutOrStdout(), items)
			})
		},
	}

	var k int
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "rank indexed chunks against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				results, err := a.documents.Search(ctx, strings.Join(args, " "), k)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), results)
				}
				w := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintln(w, "no matching chunks")
					return nil
				}
				for i, r := range results {
					headerColor.Fprintf(w, "%d. %s", i+1, r.Document.DocumentID)
					dimColor.Fprintf(w, "  hybrid=%.4f bm25=%.4f vector=%.4f\n", r.HybridScore, r.BM25Score, r.VectorScore)
					fmt.Fprintf(w, "%s\n\n", r.Snippet)
				}
				return nil
			})
		},
	}
	searchCmd.Flags().IntVarP(&k, "k", "k", 0, "number of results (default from config)")

	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "answer a question from indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				answer, err := a.documents.Ask(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), answer)
				}
				w := cmd.OutOrStdout()
				headerColor.Fprintln(w, "Answer")
				fmt.Fprintf(w, "%s\n", answer.Answer)
				if len(answer.Sources) > 0 {
					dimColor.Fprintf(w, "\nsources:")
					for _, s := range answer.Sources {
						dimColor.Fprintf(w, " %s", s.Document.DocumentID)
					}
					fmt.Fprintln(w)
				}
				return nil
			})
		},
	}

	var once bool
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "remove expired cache entries, on a schedule or once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				cleanup := a.cleanupJob()
				if once {
					return schedule.RunNow(ctx, cleanup)
				}
				s := schedule.NewCronScheduler()
				if err := s.AddJob(cleanup, a.cfg.Cleanup.Spec); err != nil {
					return err
				}
				s.Start(ctx)
				logutil.GetLogger(ctx).Info("cleanup scheduler running",
					zap.String("spec", a.cfg.Cleanup.Spec),
					zap.Time("next", s.Next(cleanup.Name())))
				<-ctx.Done()
				s.Stop()
				return nil
			})
		},
	}
	cleanupCmd.Flags().BoolVar(&once, "once", false, "run the cleanup once and exit")

	rootCmd.AddCommand(ingestCmd, searchCmd, askCmd, cleanupCmd)
	if err := rootCmd.Execute(); err != nil {
		errColor.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Debug("config loaded", zap.String("config", path))
	return cfg, nil
}

func printIngest(w io.Writer, items []*service.BatchItem) error {
	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			errColor.Fprintf(w, "✗ %s: %v\n", item.Path, item.Err)
			continue
		}
		res := item.Result
		okColor.Fprintf(w, "✓ %s", item.Path)
		dimColor.Fprintf(w, "  chunks=%d cached=%t summaries=%d/%d embeddings=%d/%d %s\n",
			res.ChunkCount, res.FromCache,
			res.SummariesSucceeded, res.ChunkCount,
			res.EmbeddingsSucceeded, res.ChunkCount,
			res.Duration.Round(time.Millisecond))
		headerColor.Fprintln(w, "Summary")
		fmt.Fprintf(w, "%s\n\n", res.Summary)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(items))
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
