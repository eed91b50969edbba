// Command annabench evaluates LLM answers to a corpus of real-world Arch
// Linux support questions and writes a Markdown report of the verdicts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/anna-assistant/annabench/infrastructure/corpus"
	"github.com/anna-assistant/annabench/infrastructure/eval"
	"github.com/anna-assistant/annabench/infrastructure/middleware"
	"github.com/anna-assistant/annabench/infrastructure/oracle"
	"github.com/anna-assistant/annabench/infrastructure/report"
	"github.com/anna-assistant/annabench/internal/application"
	"github.com/anna-assistant/annabench/internal/domain"
)

func main() {
	configPath := flag.String("config", "annabench.yaml", "path to the configuration file")
	corpusPath := flag.String("corpus", "", "override the corpus path from the configuration")
	reportPath := flag.String("report", "", "override the report path from the configuration")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	if err := run(*configPath, *corpusPath, *reportPath, *metricsAddr); err != nil {
		log.Fatalf("annabench: %v", err)
	}
}

func run(configPath, corpusOverride, reportOverride, metricsAddr string) error {
	cfg, err := application.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if corpusOverride != "" {
		cfg.CorpusPath = corpusOverride
	}
	if reportOverride != "" {
		cfg.ReportPath = reportOverride
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := middleware.NewPrometheusMetrics()
	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	client, err := buildOracle(cfg.Oracle, collector)
	if err != nil {
		return err
	}

	builder, err := buildRecordBuilder(cfg, client, collector)
	if err != nil {
		return err
	}

	runner, err := application.NewBatchRunner(client, builder,
		application.WithConcurrency(cfg.Concurrency),
		application.WithRunnerMetrics(collector),
	)
	if err != nil {
		return err
	}

	questions, err := corpus.NewYAMLSource(cfg.CorpusPath).Questions(ctx)
	if err != nil {
		return err
	}
	log.Printf("loaded %d questions from %s", len(questions), cfg.CorpusPath)

	start := time.Now()
	records, runErr := runner.Run(ctx, questions, cfg.Oracle.GenerationConfig())
	if runErr != nil {
		// Provenance failures skip individual records; the rest of the
		// batch is still reportable.
		log.Printf("some records were skipped: %v", runErr)
	}
	log.Printf("evaluated %d/%d questions in %s", len(records), len(questions), time.Since(start).Round(time.Millisecond))

	return writeReport(ctx, cfg.ReportPath, records)
}

func buildOracle(cfg application.OracleConfig, collector *middleware.PrometheusMetrics) (*oracle.Client, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	// Outermost first: metrics observe everything including retries.
	mws := []oracle.Middleware{oracle.MetricsMiddleware(collector)}
	if cfg.MaxRetries > 0 {
		mws = append(mws, oracle.RetryMiddleware(cfg.MaxRetries, time.Second, 30*time.Second))
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		mws = append(mws, oracle.RateLimitMiddleware(rate.Limit(cfg.RequestsPerSecond), burst))
	}
	if cfg.Timeout > 0 {
		mws = append(mws, oracle.TimeoutMiddleware(cfg.Timeout.Std()))
	}

	return oracle.NewClient(cfg.Provider, oracle.ClientConfig{
		APIKey:       apiKey,
		Model:        cfg.Model,
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout.Std(),
		SystemPrompt: cfg.SystemPrompt,
		Middleware:   mws,
	})
}

func buildRecordBuilder(cfg *application.Config, client *oracle.Client, collector *middleware.PrometheusMetrics) (*application.RecordBuilder, error) {
	classifierCfg := eval.DefaultClassifierConfig()
	if cfg.Classifier.MinTopicOverlap > 0 {
		classifierCfg.MinTopicOverlap = cfg.Classifier.MinTopicOverlap
	}
	if cfg.Classifier.FuzzyThreshold > 0 {
		classifierCfg.FuzzyThreshold = cfg.Classifier.FuzzyThreshold
	}

	opts := []application.BuilderOption{application.WithMetrics(collector)}

	if cfg.Judge.Enabled {
		judgeCfg := eval.DefaultJudgeConfig()
		if cfg.Judge.Model != "" {
			judgeCfg.Model = cfg.Judge.Model
		}
		if cfg.Judge.MinConfidence > 0 {
			judgeCfg.MinConfidence = cfg.Judge.MinConfidence
		}
		judge, err := eval.NewJudge(client, judgeCfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, application.WithJudge(judge))
	}

	return application.NewRecordBuilder(classifierCfg, opts...)
}

func writeReport(ctx context.Context, path string, records []domain.EvaluationRecord) error {
	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	if err := report.NewMarkdownSink(out).Write(ctx, records); err != nil {
		return err
	}
	if path != "" {
		log.Printf("report written to %s", path)
	}
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}
