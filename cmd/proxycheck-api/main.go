package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/August26/proxycheck-api/internal/analytics"
	"github.com/August26/proxycheck-api/internal/checker"
	"github.com/August26/proxycheck-api/internal/config"
	"github.com/August26/proxycheck-api/internal/geo"
	"github.com/August26/proxycheck-api/internal/logging"
	"github.com/August26/proxycheck-api/internal/model"
	"github.com/August26/proxycheck-api/internal/output"
	"github.com/August26/proxycheck-api/internal/server"
)

const usage = `usage:
  proxycheck-api [serve] [flags]   run the HTTP API
  proxycheck-api check [flags]     check one proxy and print the report`

func main() {
	args := os.Args[1:]
	mode := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "check") {
		mode, args = args[0], args[1:]
	}

	var code int
	switch mode {
	case "check":
		code = runCheck(args, os.Stdout)
	default:
		code = runServe(args)
	}
	os.Exit(code)
}

// loadConfig parses fs, loads the -config file and lets every flag that was
// set explicitly override the file.
func loadConfig(fs *flag.FlagSet, args []string, serve bool) (model.Config, error) {
	var (
		cfgPath  string
		override model.Config
		origins  string
	)
	defaults := config.Default()
	fs.StringVar(&cfgPath, "config", "", "path to YAML config file")
	fs.StringVar(&override.TargetURL, "target", defaults.TargetURL, "URL fetched through the proxy")
	fs.IntVar(&override.MaxTries, "tries", defaults.MaxTries, "HTTP attempts per check (min 1)")
	fs.BoolVar(&override.Verbose, "verbose", false, "enable debug logs")
	fs.StringVar(&override.LogFormat, "log-format", defaults.LogFormat, "log format: json | text")
	if serve {
		fs.StringVar(&override.Listen, "listen", defaults.Listen, "HTTP listen address")
		fs.StringVar(&origins, "origins", "", "comma separated allowed CORS origins")
		fs.IntVar(&override.RateLimitPerMinute, "rate-limit", defaults.RateLimitPerMinute, "requests per minute per client IP (0 disables)")
		fs.StringVar(&override.GeoIPDB, "geoip-db", "", "optional MaxMind City database for /api/ipinfo")
	}
	if err := fs.Parse(args); err != nil {
		return model.Config{}, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target":
			cfg.TargetURL = override.TargetURL
		case "tries":
			cfg.MaxTries = override.MaxTries
		case "verbose":
			cfg.Verbose = override.Verbose
		case "log-format":
			cfg.LogFormat = override.LogFormat
		case "listen":
			cfg.Listen = override.Listen
		case "origins":
			cfg.AllowedOrigins = splitList(origins)
		case "rate-limit":
			cfg.RateLimitPerMinute = override.RateLimitPerMinute
		case "geoip-db":
			cfg.GeoIPDB = override.GeoIPDB
		}
	})
	return cfg, config.Validate(cfg)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(fs.Output(), usage); fs.PrintDefaults() }
	cfg, err := loadConfig(fs, args, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := logging.NewLogger(cfg.Verbose, cfg.LogFormat)

	var source geo.Source = geo.NewRemoteSource(cfg.IPInfoURL)
	if cfg.GeoIPDB != "" {
		db, err := geo.OpenGeoIP(cfg.GeoIPDB)
		if err != nil {
			log.Error("failed to open geoip database", "err", err, "path", cfg.GeoIPDB)
			return 1
		}
		defer db.Close()
		source = db
	}

	log.Info("starting proxycheck-api",
		"listen", cfg.Listen,
		"target", cfg.TargetURL,
		"tries", cfg.MaxTries,
		"rate_limit_per_minute", cfg.RateLimitPerMinute,
		"origins", cfg.AllowedOrigins,
		"geoip", cfg.GeoIPDB != "",
	)

	stats := analytics.NewTracker()
	srv := server.NewServer(checker.New(cfg, log), source, stats, server.ServerOptions{
		Addr:               cfg.Listen,
		MaxTries:           cfg.MaxTries,
		ShutdownTimeout:    cfg.ShutdownTimeout,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		Logger:             log,
	})
	if err := srv.Start(); err != nil {
		log.Error("failed to start api", "err", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	log.Info("received signal, shutting down", "signal", sig.String())

	if err := srv.Stop(context.Background()); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
	s := stats.Snapshot()
	log.Info("stopped",
		"total_checks", s.TotalChecks,
		"alive", s.AliveProxies,
		"success_rate_pct", s.SuccessRatePct,
	)
	return 0
}

// runCheck verifies a single proxy. Exit code is 0 when the proxy is alive,
// 2 when it is dead and 1 on bad input.
func runCheck(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(fs.Output(), usage); fs.PrintDefaults() }

	var req model.CheckRequest
	var timeoutMs int
	var outFile, outFormat string
	fs.StringVar(&req.Proxy, "proxy", "", "proxy as user:pass@ip:port")
	fs.StringVar(&req.Type, "type", "http", "proxy type: http | https | socks4 | socks5")
	fs.IntVar(&timeoutMs, "timeout-ms", model.DefaultTimeoutMs, "timeout per network operation in milliseconds")
	fs.StringVar(&outFile, "output", "", "optional path to write the report (json/csv)")
	fs.StringVar(&outFormat, "format", "json", "output format: json | csv")
	cfg, err := loadConfig(fs, args, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	req.TimeoutMs = &timeoutMs

	log := logging.NewLogger(cfg.Verbose, cfg.LogFormat)
	return check(log, cfg, req, stdout, outFile, outFormat)
}

func check(log *slog.Logger, cfg model.Config, req model.CheckRequest, stdout io.Writer, outFile, outFormat string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := checker.New(cfg, log).Check(ctx, req)
	if err != nil {
		log.Error("check failed", "err", err)
		return 1
	}

	output.PrintReport(stdout, report)

	if outFile != "" {
		if err := output.WriteFile(outFile, outFormat, report); err != nil {
			log.Error("failed to write output file", "err", err, "path", outFile)
		} else {
			log.Info("report written",
				"path", outFile,
				"format", outFormat,
			)
		}
	}

	if !report.Alive {
		return 2
	}
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
