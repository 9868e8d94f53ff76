// Command marksense runs the correction engine as a standalone server with
// a line-based typing harness on stdin. It exists for local development and
// soak testing; editor frontends embed the engine packages directly.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/victor-ca/marksense/internal/assist"
	"github.com/victor-ca/marksense/internal/config"
	"github.com/victor-ca/marksense/internal/dictionary"
	"github.com/victor-ca/marksense/internal/document"
	"github.com/victor-ca/marksense/internal/engine"
	"github.com/victor-ca/marksense/internal/engine/trigger"
	"github.com/victor-ca/marksense/internal/health"
	"github.com/victor-ca/marksense/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	demo := flag.Bool("demo", false, "read typed text from stdin and print engine state after each line")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "marksense: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "marksense: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("marksense starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Dictionary store ──────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerDictionaryBackends(ctx, reg)

	dict, err := reg.CreateDictionary(cfg.Dictionary)
	if err != nil {
		slog.Error("failed to build dictionary store", "err", err)
		return 1
	}
	if err := dict.Load(ctx); err != nil {
		slog.Error("failed to load dictionary", "err", err)
		return 1
	}
	slog.Info("dictionary loaded", "backend", cfg.Dictionary.Backend)

	// ── Assist client ─────────────────────────────────────────────────────────
	var assistOpts []assist.Option
	if cfg.Assist.APIKey != "" {
		assistOpts = append(assistOpts, assist.WithAPIKey(cfg.Assist.APIKey))
	}
	if len(cfg.Assist.Languages) > 0 {
		assistOpts = append(assistOpts, assist.WithLanguages(cfg.Assist.Languages))
	}
	if cfg.Assist.TimeoutMS > 0 {
		assistOpts = append(assistOpts, assist.WithTimeout(time.Duration(cfg.Assist.TimeoutMS)*time.Millisecond))
	}
	client, err := assist.New(cfg.Assist.BaseURL, assistOpts...)
	if err != nil {
		slog.Error("failed to build assist client", "err", err)
		return 1
	}

	// ── Engine over an in-memory document ─────────────────────────────────────
	doc := document.NewMemDoc("")
	eng, err := engine.New(ctx, doc, client, dict,
		engine.WithLogger(logger),
		engine.WithCoordinatorOptions(delayOptions(cfg.Engine)...),
	)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		return 1
	}
	defer eng.Close()

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(_, _ *config.Config, diff config.ConfigDiff) {
		if diff.LogLevelChanged {
			logLevel.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
		if diff.DelaysChanged {
			for kind, d := range delayMap(diff.NewDelays) {
				eng.SetDebounce(kind, d)
			}
			slog.Info("debounce windows changed",
				"word_ms", diff.NewDelays.WordDelayMS,
				"grammar_ms", diff.NewDelays.GrammarDelayMS,
				"prediction_ms", diff.NewDelays.PredictionDelayMS,
			)
		}
		if diff.AssistChanged || diff.DictionaryChanged {
			slog.Warn("assist or dictionary settings changed; restart required to apply")
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── HTTP server: health + metrics ─────────────────────────────────────────
	mux := http.NewServeMux()
	health.New(
		health.Assist(client.Ping),
		health.Dictionary(dict.Load),
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if *demo {
		g.Go(func() error {
			runDemo(gctx, doc, eng)
			stop()
			return nil
		})
	}

	slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerDictionaryBackends wires the built-in dictionary store factories
// into reg.
func registerDictionaryBackends(ctx context.Context, reg *config.Registry) {
	reg.RegisterDictionary(config.DictionaryFile, func(cfg config.DictionaryConfig) (dictionary.Store, error) {
		return dictionary.NewFileStore(cfg.Path), nil
	})
	reg.RegisterDictionary(config.DictionaryPostgres, func(cfg config.DictionaryConfig) (dictionary.Store, error) {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := dictionary.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate dictionary schema: %w", err)
		}
		return store, nil
	})
}

// runDemo feeds stdin lines into the document character by character, the
// way an editor surface would, and prints the engine's state after each
// line. It returns on EOF or context cancellation.
func runDemo(ctx context.Context, doc *document.MemDoc, eng *engine.Engine) {
	fmt.Println("marksense demo — type text, one line at a time; Ctrl+D to quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text() + "\n"
		for _, r := range line {
			_, head := doc.Selection()
			if _, err := doc.Insert(head, string(r)); err != nil {
				slog.Error("demo insert failed", "err", err)
				return
			}
		}

		// Give the debounced requests a moment to land before printing.
		select {
		case <-ctx.Done():
			return
		case <-time.After(1200 * time.Millisecond):
		}
		printState(doc, eng)
	}
	if err := scanner.Err(); err != nil {
		slog.Error("demo stdin error", "err", err)
	}
}

func printState(doc *document.MemDoc, eng *engine.Engine) {
	snap := eng.Snapshot()
	fmt.Printf("--- document ---\n%s\n", doc.String())
	for _, c := range snap.Corrections {
		marker := " "
		if c.ID == snap.ActiveCorrectionID {
			marker = "*"
		}
		top := ""
		if len(c.Suggestions) > 0 {
			top = c.Suggestions[0].Text
		}
		fmt.Printf("%s [%d,%d) %s %q -> %q\n", marker, c.From, c.To, c.Type, c.OriginalValue, top)
	}
	if snap.Prediction != nil {
		fmt.Printf("ghost @%d: %q\n", snap.Prediction.CursorPos, snap.Prediction.GhostText)
	}
}

// delayOptions converts config debounce overrides into coordinator options.
func delayOptions(cfg config.EngineConfig) []trigger.Option {
	var opts []trigger.Option
	for kind, d := range delayMap(cfg) {
		opts = append(opts, trigger.WithDelay(kind, d))
	}
	return opts
}

// delayMap returns only the delays the config actually overrides.
func delayMap(cfg config.EngineConfig) map[trigger.Kind]time.Duration {
	m := make(map[trigger.Kind]time.Duration, 3)
	if cfg.WordDelayMS > 0 {
		m[trigger.KindWord] = time.Duration(cfg.WordDelayMS) * time.Millisecond
	}
	if cfg.GrammarDelayMS > 0 {
		m[trigger.KindGrammar] = time.Duration(cfg.GrammarDelayMS) * time.Millisecond
	}
	if cfg.PredictionDelayMS > 0 {
		m[trigger.KindPrediction] = time.Duration(cfg.PredictionDelayMS) * time.Millisecond
	}
	return m
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
