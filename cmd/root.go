package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/lukman83/campaign-scout/config"
	"github.com/lukman83/campaign-scout/internal/httputil"
	"github.com/lukman83/campaign-scout/internal/logging"
	"github.com/lukman83/campaign-scout/internal/pipeline"
	"github.com/lukman83/campaign-scout/internal/shopreview"
	"github.com/lukman83/campaign-scout/internal/stealth"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Campaign Scout - find hidden review campaigns by id",
	Long: "Scans campaign detail pages by numeric id with a session cookie, filters them by\n" +
		"participation day and keywords, and splits matches into hidden and public campaigns.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = initConfig

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("session", "", "Session cookie value (or $SCOUT_SESSION)")
	rootCmd.PersistentFlags().String("base-url", "", "Site root URL")
	rootCmd.PersistentFlags().String("fetcher", "", "Page fetcher: static, headless")
	rootCmd.PersistentFlags().Int("workers", 0, "Concurrent page fetches")
	rootCmd.PersistentFlags().String("delay-profile", "", "Delay profile: off, cautious, normal, aggressive")
	rootCmd.PersistentFlags().Float64("rate", 0, "Max requests per second (0 keeps config value)")
	rootCmd.PersistentFlags().Bool("respect-robots", false, "Respect robots.txt rules")
	rootCmd.PersistentFlags().String("proxy-file", "", "Path to proxy list file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text, json")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cfg = config.DefaultConfig()

	flags := cmd.Root().PersistentFlags()
	if path, _ := flags.GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return err
		}
	}
	cfg.LoadFromEnv()

	// Override from flags
	if v, _ := flags.GetString("session"); v != "" {
		cfg.Session = v
	}
	if v, _ := flags.GetString("base-url"); v != "" {
		cfg.BaseURL = v
	}
	if v, _ := flags.GetString("fetcher"); v != "" {
		cfg.Fetcher = v
	}
	if v, _ := flags.GetInt("workers"); v > 0 {
		cfg.Workers = v
	}
	if v, _ := flags.GetString("delay-profile"); v != "" {
		cfg.DelayProfile = v
	}
	if v, _ := flags.GetFloat64("rate"); v > 0 {
		cfg.RatePerSecond = v
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobots, _ = flags.GetBool("respect-robots")
	}
	if v, _ := flags.GetString("proxy-file"); v != "" {
		cfg.ProxyFile = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = logging.New(logging.Options{
		Writer: cmd.ErrOrStderr(),
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slog.SetDefault(logger)
	return nil
}

// buildHTTPClient creates the stealth-wrapped HTTP client from config.
func buildHTTPClient() (*http.Client, error) {
	base := httputil.NewBaseTransport(cfg.InsecureTLS)

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(cfg.RateBurst, 1))
	}

	var proxies *stealth.ProxyRotator
	if cfg.ProxyFile != "" {
		providers, err := stealth.LoadProxyFile(cfg.ProxyFile, base)
		if err != nil {
			return nil, err
		}
		proxies = stealth.NewProxyRotator(providers)
	}

	profile, err := stealth.ParseDelayProfile(cfg.DelayProfile)
	if err != nil {
		return nil, err
	}

	robotsClient := httputil.NewHTTPClient(base, cfg.FetchTimeout)
	transport := &stealth.StealthTransport{
		Base:        base,
		Robots:      stealth.NewRobotsChecker(robotsClient, cfg.RespectRobots),
		Fingerprint: stealth.NewFingerprintPool(),
		Proxy:       proxies,
		Delay:       stealth.NewHumanDelay(profile),
		RateLimiter: limiter,
	}

	return httputil.NewHTTPClient(transport, cfg.FetchTimeout), nil
}

// buildScanner wires the configured fetcher into a scanner. The returned
// func releases fetcher resources (the headless browser).
func buildScanner() (*pipeline.Scanner, func(), error) {
	var (
		source  pipeline.Source
		cleanup = func() {}
	)
	switch cfg.Fetcher {
	case "headless":
		h := shopreview.NewHeadlessClient(cfg.BaseURL, cfg.CookieName, cfg.FetchTimeout)
		source = h
		cleanup = func() {
			if err := h.Close(); err != nil {
				logger.Warn("close headless browser", "error", err)
			}
		}
	default:
		client, err := buildHTTPClient()
		if err != nil {
			return nil, nil, err
		}
		source = shopreview.NewClient(client, cfg.BaseURL, cfg.CookieName)
	}

	scanner := pipeline.NewScanner(source, pipeline.Options{
		Workers:           cfg.Workers,
		DiscoveryAttempts: cfg.DiscoveryAttempts,
		DiscoveryBackoff:  cfg.DiscoveryBackoff,
		RangeMargin:       cfg.RangeMargin,
		FixedStart:        cfg.FixedStart,
	}, logger)
	return scanner, cleanup, nil
}
