package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"obfin-advisor/internal/config"
	"obfin-advisor/internal/logger"
	"obfin-advisor/internal/metrics"
	providerfactory "obfin-advisor/internal/provider/factory"
	"obfin-advisor/internal/relay"
	"obfin-advisor/internal/server"
	"obfin-advisor/internal/translator"
)

const serveUsage = `Usage:
  obfin-advisor serve [--config <path>] [--port <port>] [--env-file <path>]

Flags:
  --config   string   Path to YAML configuration file (defaults apply when omitted)
  --port     int      Override server port from configuration
  --env-file string   Dotenv file loaded before reading the environment (default ".env")

Environment:
  OPENAI_KEY          Upstream API key (name configurable via upstream.api_key_env)`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var (
		cfgPath      string
		envFile      string
		overridePort int
	)
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&envFile, "env-file", ".env", "path to dotenv file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort < 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var rec *metrics.Recorder
	if cfg.Metrics.Enabled {
		rec = metrics.New()
	}

	upstream, err := providerfactory.NewConfiguredProvider(cfg)
	if err != nil {
		return err
	}

	rl := relay.New(translator.New(cfg.Upstream), upstream, log, rec)

	srv, err := server.New(cfg, rl, log, rec, server.WithVersion(Version))
	if err != nil {
		return err
	}

	log.Info("upstream configured",
		zap.String("base_url", cfg.Upstream.BaseURL),
		zap.String("model", cfg.Upstream.Model),
		zap.Duration("timeout", cfg.Upstream.Timeout),
	)

	return srv.Run(ctx)
}
