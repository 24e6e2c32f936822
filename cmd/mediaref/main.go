// Package main provides the mediaref service entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"mediaref/internal/core"
	"mediaref/internal/flood"
	httpserver "mediaref/internal/http"
	"mediaref/internal/session"
	"mediaref/internal/store"
	"mediaref/pkg/medialink"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mediaref",
	Short: "mediaref - media reference resolution service",
	Long: `mediaref resolves pasted media URLs (YouTube, TikTok, Instagram) into
classified, enriched references and reconciles URL-detected start offsets
with user-entered playback windows.`,
	RunE: runMediaref,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().String("store-path", "./mediaref.db", "content database path")
	rootCmd.PersistentFlags().String("oembed-url", "", "TikTok oEmbed endpoint override")
	rootCmd.PersistentFlags().Int("enrich-timeout", 10, "enrichment request timeout in seconds")
	rootCmd.PersistentFlags().Int("rate-limit", 240, "API requests per client per minute")
	rootCmd.PersistentFlags().String("api-tokens", "", "comma-separated token:user pairs")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("MEDIAREF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	if port := viper.GetInt("server-port"); port != 0 {
		cfg.Server.Port = port
	}

	if path := viper.GetString("store-path"); path != "" {
		cfg.Store.Path = path
	}

	if oembedURL := viper.GetString("oembed-url"); oembedURL != "" {
		cfg.Enrich.OEmbedURL = oembedURL
	}
	if timeout := viper.GetInt("enrich-timeout"); timeout > 0 {
		cfg.Enrich.Timeout = time.Duration(timeout) * time.Second
	}

	if limit := viper.GetInt("rate-limit"); limit > 0 {
		cfg.Flood.RequestsPerMinute = limit
	}

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runMediaref(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting mediaref",
		zap.String("store_path", config.Store.Path),
		zap.String("oembed_url", config.Enrich.OEmbedURL))

	contentStore, err := store.Open(config.Store, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open content store: %w", err)
	}
	defer func() {
		_ = contentStore.Close()
	}()

	metrics := httpserver.NewMetrics()

	resolver := medialink.NewManager(
		medialink.WithOEmbedURL(config.Enrich.OEmbedURL),
		medialink.WithEnrichTimeout(config.Enrich.Timeout),
		medialink.WithEnrichCacheSize(config.Enrich.CacheSize),
	)
	if tiktok := resolver.TikTok(); tiktok != nil {
		tiktok.Observe = metrics.RecordEnrichment
	}

	engine := core.NewOrchestrator(resolver, metrics, logger.Named("engine"))

	sessions := session.NewStaticLookup(parseAPITokens(viper.GetString("api-tokens")))

	gate := flood.New(config.Flood.RequestsPerMinute)
	defer gate.Stop()

	server := httpserver.NewServer(&config.Server, engine, contentStore, sessions, gate, metrics, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				metrics.SetActiveItems(engine.ActiveItems())
			}
		}
	})

	logger.Info("mediaref started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("mediaref stopped with error", zap.Error(err))
		return err
	}

	logger.Info("mediaref stopped gracefully")
	return nil
}

// parseAPITokens splits "token:user,token2:user2" into a lookup table.
func parseAPITokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, userID, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		tokens[strings.TrimSpace(token)] = strings.TrimSpace(userID)
	}
	return tokens
}
