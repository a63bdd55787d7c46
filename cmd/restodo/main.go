package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/config"
	"github.com/sandeepkv93/restodo/internal/logging"
	"github.com/sandeepkv93/restodo/internal/remote"
	"github.com/sandeepkv93/restodo/internal/translator"
)

var Version = "dev"

type rootOptions struct {
	configPath string
	baseURL    string
	schema     string
	locale     string
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "restodo",
		Short:         "Terminal client for a PostgREST todos service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (default $RESTODO_CONFIG)")
	pf.StringVar(&opts.baseURL, "base-url", "", "service base URL")
	pf.StringVar(&opts.schema, "schema", "", "schema sent as Accept-Profile / Content-Profile")
	pf.StringVar(&opts.locale, "locale", "", "UI language (en, zh)")

	rootCmd.AddCommand(listCmd(opts))
	rootCmd.AddCommand(addCmd(opts))
	rootCmd.AddCommand(editCmd(opts))
	rootCmd.AddCommand(toggleCmd(opts, "done", true))
	rootCmd.AddCommand(toggleCmd(opts, "undone", false))
	rootCmd.AddCommand(rmCmd(opts))
	rootCmd.AddCommand(stubCmd(opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "restodo:", err)
		os.Exit(1)
	}
}

// load applies the persistent flags on top of the layered config.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("schema") {
		cfg.Schema = o.schema
	}
	if flags.Changed("locale") {
		cfg.Locale = o.locale
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

type app struct {
	cfg    config.Config
	logger *zap.Logger
	client *remote.Client
	tr     *translator.Translator
}

func bootstrap(cmd *cobra.Command, opts *rootOptions) (*app, func(), error) {
	cfg, err := opts.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	undo := zap.ReplaceGlobals(logger)
	cleanup := func() {
		_ = logger.Sync()
		undo()
	}

	client, err := remote.New(remote.Config{
		BaseURL:    cfg.BaseURL,
		Schema:     cfg.Schema,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		Logger:     logger.Named("remote"),
		UserAgent:  "restodo/" + Version,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	tr, err := translator.New(cfg.Locale, logger.Named("i18n"))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("restodo starting",
		zap.String("version", Version),
		zap.String("base_url", cfg.BaseURL),
		zap.String("schema", cfg.Schema),
		zap.String("locale", tr.Tag().String()),
	)
	return &app{cfg: cfg, logger: logger, client: client, tr: tr}, cleanup, nil
}
