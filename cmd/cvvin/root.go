package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/cvvin/internal/analysis"
	"github.com/amishk599/cvvin/internal/config"
	"github.com/amishk599/cvvin/internal/document"
	"github.com/amishk599/cvvin/internal/extract"
	"github.com/amishk599/cvvin/internal/jobpost"
	"github.com/amishk599/cvvin/internal/match"
	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/notifier"
	"github.com/amishk599/cvvin/internal/ratelimit"
	"github.com/amishk599/cvvin/internal/retry"
	"github.com/amishk599/cvvin/internal/session"
	"github.com/amishk599/cvvin/internal/skills"
	"github.com/amishk599/cvvin/internal/store"
	"github.com/amishk599/cvvin/internal/taxonomy"
)

const defaultConfigPath = "config.yaml"

var (
	cfgPath   string
	debug     bool
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "cvvin",
	Short: "Resume match: see how your resume fits a job",
	Long: "cvvin keeps a local candidate profile and scores a resume against a job " +
		"description, listing matched and missing skills with suggestions.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: CVVIN_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep everything in memory; nothing is written to disk")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > CVVIN_CONFIG env var > "./config.yaml".
// Only the implicit default may be missing, in which case defaults apply.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CVVIN_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	return config.Load(path)
}

// setupLogger writes to stderr so report output on stdout stays clean.
func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelWarn
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// app bundles what every command needs once the config is loaded.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	kv       kvCloser
	sessions *session.Store
	tax      *taxonomy.Taxonomy
}

type kvCloser interface {
	model.KVStore
	model.ResultStore
	Close() error
}

func openApp(ctx context.Context) (*app, error) {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	kv, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := session.Open(ctx, kv, session.Options{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	if err != nil {
		kv.Close()
		return nil, err
	}

	tax, err := taxonomy.Load(cfg.TaxonomyPath)
	if err != nil {
		kv.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, kv: kv, sessions: sessions, tax: tax}, nil
}

// openStageApp is openApp for commands that belong to a routed stage. It
// fails with ErrNotAuthenticated when the stage is out of reach.
func openStageApp(cmd *cobra.Command, stage model.Stage) (*app, error) {
	a, err := openApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := a.sessions.CanEnter(stage); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

func openStore(cfg *config.Config, logger *slog.Logger) (kvCloser, error) {
	if ephemeral {
		logger.Info("ephemeral mode enabled, nothing will be written to disk")
		return store.NewMemoryStore(), nil
	}
	s, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
	}
	return s, nil
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		var n model.Notifier = notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
		n = retry.NewRetryNotifier(n, cfg.Notification.MaxRetries, time.Second, logger)
		limiter := ratelimit.NewSinkRateLimiter(cfg.Notification.MinDelay)
		return ratelimit.NewRateLimitedNotifier(n, limiter, "slack")
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupPostingFetcher resolves posting links with retries, spacing requests
// to the same ATS host.
func setupPostingFetcher(cfg *config.Config, logger *slog.Logger) model.PostingFetcher {
	httpClient := &http.Client{Timeout: cfg.JobPosting.Timeout}
	var f model.PostingFetcher = jobpost.NewFetcher(httpClient)
	f = retry.NewRetryFetcher(f, cfg.JobPosting.MaxRetries, 2*time.Second, logger)
	return ratelimit.NewRateLimitedFetcher(f, ratelimit.NewSinkRateLimiter(cfg.JobPosting.MinDelay))
}

func (a *app) normalizer() *document.Normalizer {
	return document.NewNormalizer(extract.NewPDFExtractor(), a.logger)
}

// newController wires the analysis pipeline against the session store.
func (a *app) newController(n model.Notifier) (*analysis.Controller, error) {
	extractor, err := skills.NewExtractor(a.tax)
	if err != nil {
		return nil, err
	}
	pipeline := analysis.NewPipeline(a.normalizer(), extractor, match.NewScorer(a.tax), a.logger)
	return analysis.NewController(a.sessions, pipeline, analysis.Options{
		Timeout:  a.cfg.Analysis.Timeout,
		Results:  a.kv,
		Notifier: n,
		Logger:   a.logger,
	}), nil
}

// readUpload reads path as a picked file, refusing anything over maxBytes.
func readUpload(path string, maxBytes int64) (model.Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Upload{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return model.Upload{}, err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return model.Upload{}, fmt.Errorf("%s is %d bytes, the limit is %d", info.Name(), info.Size(), maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, info.Size()+1))
	if err != nil {
		return model.Upload{}, err
	}
	return model.Upload{
		Name: info.Name(),
		MIME: mime.TypeByExtension(model.Extension(info.Name())),
		Data: data,
	}, nil
}
