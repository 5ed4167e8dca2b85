package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/goestools/goestow/internal/blob"
	"github.com/goestools/goestow/internal/config"
	"github.com/goestools/goestow/internal/pipeline"
	"github.com/goestools/goestow/internal/watchdir"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "goestow",
	Short:   "Watch a directory tree and ship stable files to an S3 bucket",
	Version: version,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			WatchRoot:         viper.GetString("watch_root"),
			Exts:              config.ParseExts(viper.GetString("exts")),
			Quiet:             time.Duration(viper.GetInt("quiet_seconds")) * time.Second,
			ScanInterval:      viper.GetDuration("scan_interval"),
			Concurrency:       viper.GetInt("concurrency"),
			DeleteAfterUpload: viper.GetBool("delete_after_upload"),
			Bucket:            viper.GetString("bucket"),
			Prefix:            viper.GetString("prefix"),
			ExtraMetadata:     config.ParseExtraMetadata(viper.GetString("extra_metadata")),
			MaxAttempts:       viper.GetInt("max_attempts"),
			BackoffCap:        time.Duration(viper.GetInt("backoff_cap_seconds")) * time.Second,
			AttemptTimeout:    viper.GetDuration("attempt_timeout"),
			S3: config.S3{
				Endpoint:  viper.GetString("s3_endpoint"),
				Region:    viper.GetString("s3_region"),
				AccessKey: viper.GetString("s3_access_key"),
				SecretKey: viper.GetString("s3_secret_key"),
				VerifySSL: viper.GetBool("s3_verify_ssl"),
			},
		}

		if cfg.WatchRoot == "" {
			return config.ErrNoWatchRoot
		}
		root, err := watchdir.New(cfg.WatchRoot)
		if err != nil {
			return err
		}
		cfg.WatchRoot = root.Root

		if err := cfg.Validate(); err != nil {
			return err
		}

		// all good now, stop cobra from printing usage on runtime errors
		cmd.SilenceUsage = true
		showHeader()

		if err := root.Lock(); err != nil {
			return err
		}
		defer root.Unlock()

		backend, err := blob.NewS3BackendWithConfig(&blob.S3Config{
			BucketName: cfg.Bucket,
			Region:     cfg.S3.Region,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			Endpoint:   cfg.S3.Endpoint,
			VerifySSL:  cfg.S3.VerifySSL,
		})
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		return pipeline.NewManager(cfg, backend).Start(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("root", "r", "", "Directory tree to watch")
	rootCmd.Flags().StringP("bucket", "b", config.DefaultBucket, "Destination bucket")
	rootCmd.Flags().StringP("prefix", "p", "", "Key prefix for uploaded objects")
	rootCmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency, "Concurrent uploads")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file")
}

func main() {
	// local overrides for dev setups, silently absent in production
	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if lvl, ok := os.LookupEnv("GOESTOW_LOG_LEVEL"); ok {
		_ = logLevel.UnmarshalText([]byte(lvl))
	}

	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevel,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/goestow")
		viper.SetConfigName("goestow")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.SetDefault("exts", config.DefaultExts)
	viper.SetDefault("quiet_seconds", int(config.DefaultQuiet/time.Second))
	viper.SetDefault("scan_interval", config.DefaultScanInterval)
	viper.SetDefault("concurrency", config.DefaultConcurrency)
	viper.SetDefault("delete_after_upload", true)
	viper.SetDefault("bucket", config.DefaultBucket)
	viper.SetDefault("max_attempts", config.DefaultMaxAttempts)
	viper.SetDefault("backoff_cap_seconds", int(config.DefaultBackoffCap/time.Second))
	viper.SetDefault("attempt_timeout", config.DefaultAttemptTimeout)
	viper.SetDefault("s3_region", config.DefaultRegion)
	viper.SetDefault("s3_verify_ssl", true)

	// Bind flags to viper
	viper.BindPFlag("watch_root", cmd.Flags().Lookup("root"))
	viper.BindPFlag("bucket", cmd.Flags().Lookup("bucket"))
	viper.BindPFlag("prefix", cmd.Flags().Lookup("prefix"))
	viper.BindPFlag("concurrency", cmd.Flags().Lookup("concurrency"))

	// Set up environment variables
	viper.SetEnvPrefix("GOESTOW")
	viper.AutomaticEnv()

	return nil
}

func showHeader() {
	color.New(color.FgHiCyan, color.Bold).Printf("goestow %s\n", version)
}
