package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"remit-scout/catalog"
	"remit-scout/config"
	"remit-scout/quotes"
	"remit-scout/quotes/cache"
	"remit-scout/quotes/history"
	"remit-scout/quotes/provider"
	v1 "remit-scout/router/v1"
)

const (
	logLevelJSON = "json"
	logLevelText = "text"

	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

var rootCmd = &cobra.Command{
	Use:   "remit-scout [config-file]",
	Args:  cobra.MaximumNArgs(1),
	Short: "remit-scout aggregates money-transfer quotes across remittance providers",
	Long: `remit-scout fans a single corridor request out over many remittance
providers in parallel, normalizes every answer into one canonical quote
format, and serves the aggregate over an HTTP API. Results are cached with
jittered TTLs and concurrent requests for the same corridor share one
provider fan-out. Without a config file every default applies.`,
	RunE: serverCmdHandler,
}

func init() {
	rootCmd.PersistentFlags().String(flagLogLevel, zerolog.InfoLevel.String(), "logging level")
	rootCmd.PersistentFlags().String(flagLogFormat, logLevelText, "logging format; must be either json or text")

	rootCmd.AddCommand(getQuoteCmd())
	rootCmd.AddCommand(getProvidersCmd())
	rootCmd.AddCommand(getHistoryCmd())
	rootCmd.AddCommand(getVersionCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func serverCmdHandler(cmd *cobra.Command, args []string) error {
	logger, err := getCmdLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := getCmdConfig(args)
	if err != nil {
		return err
	}

	if err := setupTelemetry(cfg.Telemetry); err != nil {
		return err
	}

	aggregator, closer, err := buildAggregator(cfg, logger)
	if err != nil {
		return err
	}
	defer closer()

	ctx, cancel := context.WithCancel(cmd.Context())
	g, ctx := errgroup.WithContext(ctx)

	// listen for and trap any OS signal to gracefully shutdown and exit
	trapSignal(cancel, logger)

	g.Go(func() error {
		return startServer(ctx, logger, cfg, aggregator)
	})

	// Block main process until all spawned goroutines have gracefully exited and
	// signal has been captured in the main process or if an error occurs.
	return g.Wait()
}

func getCmdLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	logLvlStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}
	logLvl, err := zerolog.ParseLevel(logLvlStr)
	if err != nil {
		return zerolog.Nop(), err
	}
	logFormatStr, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return zerolog.Nop(), err
	}

	var logWriter io.Writer
	switch strings.ToLower(logFormatStr) {
	case logLevelJSON:
		logWriter = os.Stderr

	case logLevelText:
		logWriter = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.StampMilli,
		}

	default:
		return zerolog.Nop(), fmt.Errorf("invalid logging format: %s", logFormatStr)
	}

	zerolog.TimeFieldFormat = time.StampMilli
	return zerolog.New(logWriter).Level(logLvl).With().Timestamp().Logger(), nil
}

func getCmdConfig(args []string) (config.Config, error) {
	if len(args) == 0 {
		return config.DefaultConfig(), nil
	}
	return config.ParseConfig(args[0])
}

// buildAggregator assembles the full pipeline: catalog, provider registry,
// cache backend, history store and the coordinator on top.
func buildAggregator(cfg config.Config, logger zerolog.Logger) (*quotes.Aggregator, func(), error) {
	cat := catalog.New()

	pctx := provider.NewContext(cat, logger)
	registry := quotes.NewRegistry(logger)
	for _, name := range provider.AllNames {
		adapter, err := quotes.NewProvider(pctx, name, cfg.Endpoint(name))
		if err != nil {
			return nil, nil, err
		}
		registry.Register(adapter, cfg.ProviderEnabled(name))
	}

	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		redisStore := cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisStore.Ping(pingCtx); err != nil {
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		store = redisStore
	default:
		store = cache.NewMemoryStore()
	}

	cacheLayer := cache.New(store, cache.TTLConfig{
		Quote:     time.Duration(cfg.Cache.QuoteTTL) * time.Second,
		Corridor:  time.Duration(cfg.Cache.CorridorTTL) * time.Second,
		Provider:  time.Duration(cfg.Cache.ProviderTTL) * time.Second,
		JitterMax: time.Duration(cfg.Cache.JitterMaxSeconds) * time.Second,
	}, logger)

	opts := []quotes.AggregatorOption{
		quotes.WithProviderTimeout(cfg.ProviderTimeout()),
		quotes.WithWorkerCount(cfg.Aggregator.MaxWorkers),
	}
	if maxAmount, err := decimal.NewFromString(cfg.Aggregator.MaxAmount); err == nil {
		opts = append(opts, quotes.WithMaxAmount(maxAmount))
	}

	var hist *history.QuoteHistory
	if cfg.HistoryDb != "" {
		h, err := history.NewQuoteHistory(cfg.HistoryDb, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init quote history db: %w", err)
		}
		hist = &h
		opts = append(opts, quotes.WithHistory(hist))
	}

	aggregator := quotes.NewAggregator(registry, cacheLayer, cat, logger, opts...)
	closer := func() {
		if hist != nil {
			_ = hist.Close()
		}
		_ = cacheLayer.Close()
	}
	return aggregator, closer, nil
}

// trapSignal will listen for any OS signal and invoke Done on the main
// WaitGroup allowing the main process to gracefully exit.
func trapSignal(cancel context.CancelFunc, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh, syscall.SIGTERM)
	signal.Notify(sigCh, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("caught signal; shutting down...")
		cancel()
	}()
}

func startServer(
	ctx context.Context,
	logger zerolog.Logger,
	cfg config.Config,
	aggregator *quotes.Aggregator,
) error {
	rtr := mux.NewRouter()
	v1Router := v1.New(logger, cfg, aggregator)
	v1Router.RegisterRoutes(rtr, v1.APIPathPrefix)

	writeTimeout, err := time.ParseDuration(cfg.Server.WriteTimeout)
	if err != nil {
		return err
	}
	readTimeout, err := time.ParseDuration(cfg.Server.ReadTimeout)
	if err != nil {
		return err
	}

	srvErrCh := make(chan error, 1)
	srv := &http.Server{
		Handler:           rtr,
		Addr:              cfg.Server.ListenAddr,
		WriteTimeout:      writeTimeout,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
	}

	go func() {
		logger.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("starting remit-scout server...")
		srvErrCh <- srv.ListenAndServe()
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()

			logger.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("shutting down remit-scout server...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("failed to gracefully shutdown remit-scout server")
				return err
			}

			return nil

		case err := <-srvErrCh:
			logger.Error().Err(err).Msg("failed to start remit-scout server")
			return err
		}
	}
}
