package command

// root.go defines the root command for the devstudio CLI.
// set up the global flags and the shared dependencies here.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"devstudio/internal/apiclient"
	"devstudio/internal/apperr"
	"devstudio/internal/cache"
	"devstudio/internal/config"
	"devstudio/internal/logging"
	"devstudio/internal/metrics"
	"devstudio/internal/notify"
	"devstudio/internal/session"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	apiURL     string // overrides api_url from config
	cfgFile    string // config file path
	logLevel   string // overrides log_level from config
	assumeYes  bool   // answer yes to confirmations
	verboseErr bool   // print the underlying error under notifications
)

// app holds what every subcommand needs. Built once in PersistentPreRunE.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *metrics.Collector
	cache    *cache.Redis
	session  *session.Session
	client   *apiclient.Client
	notifier notify.Notifier
}

var deps *app

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "devstudio",
	Short: "devstudio - command line client for the agency site",
	Long: `devstudio talks to the agency site API. User can use this application to:
- Read, post, reply to and delete blog comments
- Browse and search blog posts, like posts
- Browse the product catalog by category and price range

Use "devstudio command --help" to see all available commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		deps = a
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if deps != nil {
		deps.close()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API server URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmation prompts")
	rootCmd.PersistentFlags().BoolVarP(&verboseErr, "verbose", "v", false, "show error details")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(blogCmd)
	rootCmd.AddCommand(productCmd)
}

func setup() (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.NewCollector(),
		notifier: notify.NewConsole(os.Stderr, verboseErr),
	}

	a.session = session.New(session.NewKeyringStore(cfg.KeyringService))
	if err := a.session.Init(); err != nil {
		// a broken keyring only means we start logged out
		logger.Warn("could not restore session", zap.Error(err))
	}

	opts := apiclient.Options{
		Timeout:    cfg.HTTPTimeout,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		MaxRetries: cfg.MaxRetries,
		Tokens:     a.session,
		Logger:     logger.Named("api"),
		Metrics:    a.metrics,
		CacheTTL:   cfg.CacheTTL,
	}
	if cfg.CacheEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("response cache disabled", zap.Error(err))
		} else {
			a.cache = redisCache
			opts.Cache = redisCache
		}
	}
	a.client = apiclient.New(cfg.APIURL, opts)

	logger.Debug("cli initialised",
		zap.String("api_url", cfg.APIURL),
		zap.String("env", cfg.Env),
		zap.Bool("cache", a.cache != nil),
		zap.Bool("authenticated", a.session.IsAuthenticated()))
	return a, nil
}

func (a *app) close() {
	if summary, err := a.metrics.Summary(); err == nil && len(summary) > 0 {
		keys := make([]string, 0, len(summary))
		for k := range summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]zap.Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, zap.Float64(k, summary[k]))
		}
		a.logger.Debug("api metrics", fields...)
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close cache", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// reportedError marks a failure the notifier has already shown.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

// printError prints a command failure, adding a login hint for auth errors.
func printError(err error) {
	var r reportedError
	if !errors.As(err, &r) {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintln(os.Stderr, red("✗ "+err.Error()))
	}
	if apperr.KindOf(err) == apperr.KindAuth {
		fmt.Fprintln(os.Stderr, "  Run 'devstudio auth login' to sign in.")
	}
}
