package browser

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser owns the Playwright driver and browser process for the run.
// Contexts are created per concern: one scraping context reused for every
// fetch, and a short-lived interactive context for manual login.
type Browser struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	opts      *Options
	userAgent string
	logger    *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgents     []string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

func DefaultOptions() *Options {
	return &Options{
		Headless: true,
		Timeout:  30 * time.Second,
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "America/New_York",
		Locale:         "en-US",
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// One identity per session. Rotating it per request is a detectable
	// inconsistency, so the choice is made once, here.
	userAgent := opts.UserAgents[rand.Intn(len(opts.UserAgents))]

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
			"--user-agent=" + userAgent,
		},
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		pw:        pw,
		browser:   b,
		opts:      opts,
		userAgent: userAgent,
		logger:    slog.Default().With("component", "browser"),
	}, nil
}

func (b *Browser) contextOptions() playwright.BrowserNewContextOptions {
	return playwright.BrowserNewContextOptions{
		UserAgent:         &b.userAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &b.opts.Locale,
		TimezoneId:        &b.opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": b.opts.AcceptLanguage,
			"DNT":             "1",
		},
	}
}

// NewContext creates the scraping context. When stateFile names an existing
// storage-state file, the context starts with its cookies loaded.
func (b *Browser) NewContext(stateFile string) (playwright.BrowserContext, error) {
	opts := b.contextOptions()
	if stateFile != "" {
		if _, err := os.Stat(stateFile); err == nil {
			opts.StorageStatePath = playwright.String(stateFile)
		}
	}

	context, err := b.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	context.SetDefaultTimeout(float64(b.opts.Timeout.Milliseconds()))
	return context, nil
}

// NewInteractiveContext launches a separate headful browser for the manual
// login step. The caller must close the returned browser when done.
func (b *Browser) NewInteractiveContext() (playwright.Browser, playwright.BrowserContext, error) {
	launched, err := b.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(false),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--user-agent=" + b.userAgent,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch interactive browser: %w", err)
	}

	context, err := launched.NewContext(b.contextOptions())
	if err != nil {
		launched.Close()
		return nil, nil, fmt.Errorf("failed to create interactive context: %w", err)
	}

	return launched, context, nil
}

func (b *Browser) UserAgent() string {
	return b.userAgent
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
