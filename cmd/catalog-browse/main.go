package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/compass-catalog-client/internal/config"
	"github.com/Sternrassler/compass-catalog-client/pkg/client"
	"github.com/Sternrassler/compass-catalog-client/pkg/logging"
	"github.com/Sternrassler/compass-catalog-client/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	apiURL      string
	redisURL    string
	logLevel    string
	metricsAddr string
	jsonOutput  bool

	cfg           *config.Config
	logger        zerolog.Logger
	redisClient   *redis.Client
	apiClient     *client.Client
	metricsServer *metrics.Server
)

var rootCmd = &cobra.Command{
	Use:           "catalog-browse",
	Short:         "Browse the solution catalog page by page",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}

		logging.Setup(cfg.Log)
		logger = logging.NewLogger("catalog-browse")

		redisClient, err = openRedis(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		apiClient, err = client.New(cfg.ClientConfig(redisClient))
		if err != nil {
			return fmt.Errorf("failed to create catalog client: %w", err)
		}

		if cfg.Metrics.Addr != "" {
			metricsServer = metrics.NewServer(cfg.Metrics.Addr, logging.NewLogger("metrics"))
			metricsServer.Start()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "catalog API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis URL for the page cache, e.g. redis://localhost:6379/0")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(solutionsCmd)
	rootCmd.AddCommand(categoriesCmd)
}

// loadConfig reads the config file and applies flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		c.API.URL = apiURL
	}
	if flags.Changed("redis") {
		c.Redis.URL = redisURL
	}
	if flags.Changed("log-level") {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return nil, err
		}
		c.Log.Level = level
	}
	if flags.Changed("metrics-addr") {
		c.Metrics.Addr = metricsAddr
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// openRedis connects the optional Redis. An unreachable server disables
// caching instead of failing the command.
func openRedis(ctx context.Context, c *config.Config) (*redis.Client, error) {
	rdb, err := c.RedisClient()
	if err != nil || rdb == nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("url", c.Redis.URL).Msg("Redis unavailable, continuing without cache")
		rdb.Close()
		return nil, nil
	}

	logger.Debug().Str("url", c.Redis.URL).Msg("Connected to Redis")
	return rdb, nil
}

func shutdown() {
	if apiClient != nil {
		if err := apiClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to purge session cache")
		}
		apiClient = nil
	}
	if redisClient != nil {
		redisClient.Close()
		redisClient = nil
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
		metricsServer = nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		shutdown()
		os.Exit(1)
	}
}
