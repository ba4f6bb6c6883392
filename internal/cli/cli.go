// Package cli wires configuration, browser session, worker and presenter
// behind cobra commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"sjsage522/passoworker/config"
	"sjsage522/passoworker/internal/browser"
	"sjsage522/passoworker/internal/crawler"
	"sjsage522/passoworker/internal/presenter"
	"sjsage522/passoworker/logger"
	"sjsage522/passoworker/services/cache"
	"sjsage522/passoworker/services/proxy"
	"sjsage522/passoworker/services/publisher"
	"sjsage522/passoworker/services/worker"

	"github.com/spf13/cobra"
)

// DriverFactory opens the browser session for a run
type DriverFactory func(ctx context.Context, cfg browser.Config) (browser.Driver, error)

// NewSessionDriver starts a real Chrome session
func NewSessionDriver(ctx context.Context, cfg browser.Config) (browser.Driver, error) {
	return browser.NewSession(ctx, cfg)
}

type app struct {
	cfg       *config.Config
	newDriver DriverFactory
	in        io.Reader
	out       io.Writer
	errOut    io.Writer

	flagStartURL   string
	flagCategory   string
	flagHeadless   bool
	flagRemoteURL  string
	flagFormat     string
	flagEmptyError bool
}

// NewRootCmd creates the root command. Without a subcommand it starts the
// interactive prompt.
func NewRootCmd(cfg *config.Config, newDriver DriverFactory) *cobra.Command {
	a := &app{cfg: cfg, newDriver: newDriver}

	cmd := &cobra.Command{
		Use:   "passoworker",
		Short: "Browse passo.com.tr match listings from the terminal",
		Long: `Drives a headless Chrome through the passo.com.tr category menu,
lists the matches of a category and shows ticket categories of a match.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.in = cmd.InOrStdin()
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			return a.applyFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flagStartURL, "start-url", "", "Start page (overrides PASSO_START_URL)")
	pf.StringVar(&a.flagCategory, "category", "", "Navigation label of the category (overrides PASSO_CATEGORY)")
	pf.BoolVar(&a.flagHeadless, "headless", true, "Run Chrome without a window (overrides BROWSER_HEADLESS)")
	pf.StringVar(&a.flagRemoteURL, "remote-url", "", "DevTools WebSocket URL of a running Chrome")
	pf.StringVar(&a.flagFormat, "format", "text", "Output format: text or json")
	pf.BoolVar(&a.flagEmptyError, "empty-list-error", false, "Fail when the list marker renders without match cards")

	cmd.AddCommand(a.newListCmd(), a.newDetailCmd())
	return cmd
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the matches of the category and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd.Context(), worker.ListJob())
		},
	}
}

func (a *app) newDetailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail <index>",
		Short: "Fetch the list, then print the ticket categories of one match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil || index < 0 {
				return fmt.Errorf("invalid index %q: must be a non-negative integer", args[0])
			}
			return a.runOnce(cmd.Context(), worker.ListJob(), worker.DetailJob(index))
		},
	}
}

func (a *app) applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("start-url") {
		a.cfg.StartURL = a.flagStartURL
	}
	if flags.Changed("category") {
		a.cfg.CategoryLabel = a.flagCategory
	}
	if flags.Changed("headless") {
		a.cfg.Headless = a.flagHeadless
	}
	if flags.Changed("remote-url") {
		a.cfg.RemoteURL = a.flagRemoteURL
	}
	if flags.Changed("empty-list-error") {
		a.cfg.EmptyListIsError = a.flagEmptyError
	}
	if _, err := presenter.ParseFormat(a.flagFormat); err != nil {
		return err
	}
	return a.cfg.Validate()
}

func (a *app) presenter() *presenter.Presenter {
	format, _ := presenter.ParseFormat(a.flagFormat)
	return presenter.New(a.out, a.errOut, format)
}

// newWorker opens the browser session and the optional cache, mirror and
// proxy services, and starts the worker goroutine.
func (a *app) newWorker(ctx context.Context) (*worker.Worker, error) {
	log := logger.ForWorker()
	cfg := a.cfg

	proxyURL := ""
	if len(cfg.ProxyList) > 0 {
		pm := proxy.NewProxyManager(cfg.ProxyList)
		if p, err := pm.GetFastestProxy(ctx); err != nil {
			log.Warn().Err(err).Msg("no usable proxy, connecting directly")
		} else {
			proxyURL = p.URL()
			log.Debug().Interface("candidates", pm.GetTopProxies(3)).Msg("proxy latencies")
		}
	}

	drv, err := a.newDriver(ctx, browser.Config{
		Headless:     cfg.Headless,
		Bin:          cfg.BrowserBin,
		RemoteURL:    cfg.RemoteURL,
		WindowWidth:  cfg.WindowWidth,
		WindowHeight: cfg.WindowHeight,
		UserAgent:    cfg.UserAgent,
		NoSandbox:    cfg.NoSandbox,
		Proxy:        proxyURL,
	})
	if err != nil {
		return nil, err
	}

	var categories *cache.CategoryCache
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("memcache unavailable, category cache disabled")
		} else {
			categories = cache.NewCategoryCache(mc, cfg.CategoryCacheTTL)
		}
	}

	var pub publisher.Publisher = publisher.NopPublisher{}
	if cfg.RedisAddr != "" {
		rp := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamCount, cfg.RedisStreamMaxLength)
		if err := rp.Ping(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, event mirror disabled")
			rp.Close()
		} else {
			pub = rp
		}
	}

	w := worker.NewWorker(ctx, drv, worker.Options{
		StartURL:   cfg.StartURL,
		Category:   cfg.CategoryLabel,
		Crawler:    crawler.NewCrawlerConfig(cfg),
		Cache:      categories,
		Publisher:  pub,
		Production: cfg.IsProduction(),
	})
	go w.Start()
	return w, nil
}

// runOnce runs jobs in order, rendering their events, and stops at the first
// failed job.
func (a *app) runOnce(ctx context.Context, jobs ...worker.Job) error {
	w, err := a.newWorker(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	p := a.presenter()
	for _, job := range jobs {
		if err := w.Submit(job); err != nil {
			return err
		}
		if err := a.drain(w, p); err != nil {
			return err
		}
	}
	return nil
}

// drain renders events until the running job reports its outcome
func (a *app) drain(w *worker.Worker, p *presenter.Presenter) error {
	for ev := range w.Events() {
		if err := p.Handle(ev); err != nil {
			return err
		}
		if ev.Final() {
			return ev.Err
		}
	}
	return worker.ErrStopped
}
