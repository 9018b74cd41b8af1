package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// sourceArg lets the corpus path be given positionally.
func sourceArg(args []string) {
	if len(args) == 1 {
		sourcePath = args[0]
	}
}

// indexCorpus is the shared first half of build, query and serve.
func indexCorpus(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker) (*indexer.Engine, catalog.Catalog, func(), error) {
	engine, err := indexer.NewEngine(cfg.Index, m)
	if err != nil {
		return nil, nil, nil, err
	}
	docs, closeDocs, err := openCatalog(ctx, cfg, checker)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := buildIndex(ctx, cfg, engine, docs); err != nil {
		closeDocs()
		return nil, nil, nil, err
	}
	return engine, docs, closeDocs, nil
}

func writeDump(cfg *config.Config, engine *indexer.Engine) error {
	if cfg.Index.DumpPath == "" {
		return nil
	}
	if _, err := engine.WriteDumpFile(cfg.Index.DumpPath); err != nil {
		return fmt.Errorf("writing index dump: %w", err)
	}
	return nil
}

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Index a corpus and write the text dump",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceArg(args)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd)
		defer stop()

		engine, _, closeDocs, err := indexCorpus(ctx, cfg, newMetrics(cfg), nil)
		if err != nil {
			return err
		}
		defer closeDocs()
		if err := writeDump(cfg, engine); err != nil {
			return err
		}

		stats := engine.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents, %d terms, tree height %d; dump written to %s\n",
			stats.Documents, stats.Terms, stats.Height, cfg.Index.DumpPath)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [path]",
	Short: "Index a corpus and answer queries typed on stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceArg(args)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd)
		defer stop()

		m := newMetrics(cfg)
		engine, docs, closeDocs, err := indexCorpus(ctx, cfg, m, nil)
		if err != nil {
			return err
		}
		defer closeDocs()
		if err := writeDump(cfg, engine); err != nil {
			return err
		}
		svc, closeSvc, err := newSearchService(ctx, cfg, engine, docs, m, nil)
		if err != nil {
			return err
		}
		defer closeSvc()
		return runQueryLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), svc)
	},
}

// runQueryLoop reads one query per line until "exit" or end of input and
// prints the matching document names.
func runQueryLoop(ctx context.Context, in io.Reader, out io.Writer, svc *searcher.Service) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintln(out, "Please enter a query keyword (or type 'exit' to quit): ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		query := strings.TrimRight(scanner.Text(), "\r")
		if query == "exit" {
			return nil
		}

		resp, err := svc.Search(ctx, query)
		if err != nil {
			return err
		}
		if resp.TotalHits == 0 {
			fmt.Fprintln(out, "Retrieval failed")
		} else {
			fmt.Fprintln(out, "Matching documents:")
			for _, doc := range resp.Documents {
				name := doc.Name
				if name == "" {
					name = fmt.Sprintf("document %d", doc.ID)
				}
				fmt.Fprintf(out, "- %s\n", name)
			}
		}
		fmt.Fprintln(out)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Index a corpus and serve the query API over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceArg(args)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd)
		defer stop()

		m := newMetrics(cfg)
		checker := health.NewChecker()
		engine, docs, closeDocs, err := indexCorpus(ctx, cfg, m, checker)
		if err != nil {
			return err
		}
		defer closeDocs()
		if err := writeDump(cfg, engine); err != nil {
			return err
		}
		svc, closeSvc, err := newSearchService(ctx, cfg, engine, docs, m, checker)
		if err != nil {
			return err
		}
		defer closeSvc()

		h := handler.New(svc, engine, checker)
		chain := []func(http.Handler) http.Handler{middleware.RequestID}
		if m != nil {
			chain = append(chain, middleware.Metrics(m))
		}
		chain = append(chain, middleware.Timeout(cfg.Server.RequestTimeout))

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      middleware.Chain(h.Routes(), chain...),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		return serveUntilDone(ctx, cfg, server)
	},
}

// serveUntilDone runs the API server, and the metrics server when enabled,
// until ctx is cancelled or either fails.
func serveUntilDone(ctx context.Context, cfg *config.Config, server *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("query service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("query server: %w", err)
		}
		return nil
	})

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, nil)
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	slog.Info("query service stopped")
	return err
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Index documents published to Kafka, then write the dump",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idle, _ := cmd.Flags().GetDuration("idle")
		fromBeginning, _ := cmd.Flags().GetBool("from-beginning")
		ctx, stop := signalContext(cmd)
		defer stop()

		m := newMetrics(cfg)
		if cfg.Metrics.Enabled {
			shutdown := metrics.StartServer(cfg.Metrics.Port, nil)
			defer shutdown(context.Background())
		}
		engine, err := indexer.NewEngine(cfg.Index, m)
		if err != nil {
			return err
		}
		docs, closeDocs, err := openCatalog(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer closeDocs()

		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest,
			consumer.HandleMessage(engine, docs),
			kafka.ConsumerOptions{FromBeginning: fromBeginning, IdleTimeout: idle},
		)
		defer kc.Close()
		if err := consumer.New(kc, engine).Run(ctx); err != nil {
			return err
		}
		if err := writeDump(cfg, engine); err != nil {
			return err
		}

		stats := engine.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "consumed %d events into %d documents, %d terms\n",
			kc.Handled(), stats.Documents, stats.Terms)
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish [path]",
	Short: "Publish a corpus to the Kafka ingest topic",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceArg(args)
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Index.SourcePath == "" {
			return fmt.Errorf("no corpus path: set index.sourcePath or pass --source")
		}
		batch, _ := cmd.Flags().GetInt("batch")
		ctx, stop := signalContext(cmd)
		defer stop()

		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		defer producer.Close()

		n, err := publisher.New(producer, batch).PublishCorpus(ctx, cfg.Index.SourcePath, cfg.Index.SkipPatterns)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d documents to %s\n", n, cfg.Kafka.Topics.DocumentIngest)
		return nil
	},
}
