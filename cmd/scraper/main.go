package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/amazon-book-scraper/internal/api"
	"github.com/maltedev/amazon-book-scraper/internal/browser"
	"github.com/maltedev/amazon-book-scraper/internal/config"
	"github.com/maltedev/amazon-book-scraper/internal/events"
	"github.com/maltedev/amazon-book-scraper/internal/goodreads"
	"github.com/maltedev/amazon-book-scraper/internal/parser"
	"github.com/maltedev/amazon-book-scraper/internal/pipeline"
	"github.com/maltedev/amazon-book-scraper/internal/ratelimit"
	"github.com/maltedev/amazon-book-scraper/internal/scraper"
	"github.com/maltedev/amazon-book-scraper/internal/session"
	"github.com/maltedev/amazon-book-scraper/internal/sink"
	"github.com/maltedev/amazon-book-scraper/pkg/logger"
)

type options struct {
	inputFile string
	urlList   string
	noLogin   bool
	headless  bool
	records   string
	failures  string
}

func main() {
	var opts options
	flag.StringVar(&opts.inputFile, "file", "", "CSV worklist with a url column")
	flag.StringVar(&opts.urlList, "urls", "", "Comma-separated list of Amazon book URLs")
	flag.BoolVar(&opts.noLogin, "no-login", false, "Skip login and run without an authenticated session")
	flag.BoolVar(&opts.headless, "headless", true, "Run the scraping browser in headless mode")
	flag.StringVar(&opts.records, "output", "", "Records CSV path (overrides OUTPUT_RECORDS_FILE)")
	flag.StringVar(&opts.failures, "failures", "", "Failures CSV path (overrides OUTPUT_FAILURES_FILE)")
	flag.Parse()

	// run owns every resource; its defers complete before the process
	// exits, so the browser and sinks are released even on failure.
	if err := run(opts); err != nil {
		log.Fatalf("scraper: %v", err)
	}
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if opts.records != "" {
		cfg.Output.RecordsFile = opts.records
	}
	if opts.failures != "" {
		cfg.Output.FailuresFile = opts.failures
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting Amazon book scraper")

	urls, err := loadWorklist(opts.inputFile, opts.urlList)
	if err != nil {
		return fmt.Errorf("failed to load worklist: %w", err)
	}
	if len(urls) == 0 {
		flag.Usage()
		return fmt.Errorf("no URLs to process, use -file or -urls")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	b, err := browser.New(&browser.Options{
		Headless:       opts.headless && cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgents:     cfg.Browser.UserAgents,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer b.Close()

	manager := session.NewManager(b, cfg.Session.StateFile, cfg.Session.LoginTimeout, session.StdinConfirmer{})
	sess, err := manager.Acquire(ctx, !opts.noLogin)
	if err != nil && !errors.Is(err, session.ErrAuthUnavailable) {
		return fmt.Errorf("failed to acquire session: %w", err)
	}
	defer sess.Close()

	degraded := !sess.Authenticated()
	if degraded {
		logger.Warn("Running without authentication, secondary lookups disabled")
	}

	pacer := ratelimit.NewAdaptivePacer(cfg.Scraper.PacingMin, cfg.Scraper.PacingMax)
	fetcher := scraper.NewPageFetcher(sess, pacer, cfg.Browser.Timeout)
	bookParser := parser.NewBookParser()

	var lookup pipeline.RatingLookup
	if !degraded {
		matcher := goodreads.NewMatchStrategy(cfg.Goodreads.Match, cfg.Goodreads.FuzzyThreshold)
		lookup = goodreads.NewSearcher(sess, pacer, matcher, cfg.Browser.Timeout)
	}

	out, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open output sink: %w", err)
	}
	defer out.Close()

	var publisher pipeline.Publisher
	if cfg.Events.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Events.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Events.RedisAddr, err)
		}
		defer client.Close()
		publisher = events.NewPublisher(client, cfg.Events.Stream)
	}

	pipe := pipeline.New(pipeline.Config{
		Fetcher:     fetcher,
		Extractor:   bookParser,
		Lookup:      lookup,
		Sink:        out,
		Publisher:   publisher,
		Feedback:    pacer,
		MaxAttempts: cfg.Scraper.MaxAttempts,
		Degraded:    degraded,
	})

	if cfg.Status.Addr != "" {
		srv := &http.Server{
			Addr:    cfg.Status.Addr,
			Handler: api.NewHandlers(pipe).Router(),
		}
		go func() {
			logger.Info("Status server listening", "addr", cfg.Status.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Status server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	summary, err := pipe.Run(ctx, urls)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run aborted: %w", err)
	}

	logger.Info("Run complete",
		"run_id", summary.RunID,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"degraded", summary.Degraded,
		"duration", summary.Duration)
	return nil
}

func loadWorklist(inputFile, urlList string) ([]string, error) {
	var urls []string

	if inputFile != "" {
		fromFile, err := sink.ReadWorklist(inputFile)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}

	for _, u := range strings.Split(urlList, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	cleaned := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = parser.CleanURL(u)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		cleaned = append(cleaned, u)
	}
	return cleaned, nil
}

func buildSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sink.Sink, error) {
	csvSink, err := sink.NewCSVSink(cfg.Output.RecordsFile, cfg.Output.FailuresFile)
	if err != nil {
		return nil, err
	}

	if cfg.Database.URL == "" {
		return csvSink, nil
	}

	pgSink, err := sink.NewPostgresSink(ctx, cfg.Database.URL)
	if err != nil {
		logger.Warn("Postgres mirror unavailable, continuing with CSV only", "error", err)
		return csvSink, nil
	}
	return sink.NewMultiSink(csvSink, pgSink), nil
}
