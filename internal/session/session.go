package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/amazon-book-scraper/internal/browser"
)

const (
	signInURL      = "https://www.amazon.com/ap/signin?openid.pape.max_auth_age=0&openid.return_to=https%3A%2F%2Fwww.amazon.com%2F%3Fref_%3Dnav_custrec_signin&openid.identity=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0%2Fidentifier_select&openid.assoc_handle=usflex&openid.mode=checkid_setup&openid.claimed_id=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0%2Fidentifier_select&openid.ns=http%3A%2F%2Fspecs.openid.net%2Fauth%2F2.0"
	accountPageURL = "https://www.amazon.com/gp/css/homepage.html"
)

// ErrAuthUnavailable means no authenticated session could be established.
// The run continues in degraded mode; it is never a reason to abort.
var ErrAuthUnavailable = errors.New("authenticated session unavailable")

// Session is the browsing context shared by the fetcher and the lookup for
// the lifetime of the run. Only the Manager mutates it.
type Session struct {
	context       playwright.BrowserContext
	authenticated bool
}

func (s *Session) Context() playwright.BrowserContext {
	return s.context
}

func (s *Session) Authenticated() bool {
	return s.authenticated
}

func (s *Session) Close() error {
	if s.context == nil {
		return nil
	}
	return s.context.Close()
}

// Confirmer blocks until the operator signals that a manual step is done.
type Confirmer interface {
	Confirm(prompt string) error
}

// StdinConfirmer waits for the operator to press Enter.
type StdinConfirmer struct{}

func (StdinConfirmer) Confirm(prompt string) error {
	fmt.Fprintln(os.Stderr, prompt)
	_, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return err
}

type Manager struct {
	browser      *browser.Browser
	stateFile    string
	loginTimeout time.Duration
	confirmer    Confirmer
	logger       *slog.Logger
}

func NewManager(b *browser.Browser, stateFile string, loginTimeout time.Duration, confirmer Confirmer) *Manager {
	if confirmer == nil {
		confirmer = StdinConfirmer{}
	}
	return &Manager{
		browser:      b,
		stateFile:    stateFile,
		loginTimeout: loginTimeout,
		confirmer:    confirmer,
		logger:       slog.Default().With("component", "session"),
	}
}

// Acquire establishes the run's browsing session. With loginRequired it
// tries, in order: restore persisted cookies, then interactive manual
// login. When both fail it still returns a usable unauthenticated session
// together with ErrAuthUnavailable so the caller can degrade instead of
// abort.
func (m *Manager) Acquire(ctx context.Context, loginRequired bool) (*Session, error) {
	if !loginRequired {
		c, err := m.browser.NewContext("")
		if err != nil {
			return nil, fmt.Errorf("failed to create session context: %w", err)
		}
		return &Session{context: c}, nil
	}

	if restored, ok := m.restore(ctx); ok {
		return restored, nil
	}

	if err := m.interactiveLogin(ctx); err != nil {
		m.logger.Warn("interactive login failed", "error", err)

		c, cerr := m.browser.NewContext("")
		if cerr != nil {
			return nil, fmt.Errorf("failed to create fallback context: %w", cerr)
		}
		return &Session{context: c}, ErrAuthUnavailable
	}

	// The login ran in its own context; reload the saved cookies into a
	// fresh scraping context and verify them.
	if restored, ok := m.restore(ctx); ok {
		return restored, nil
	}

	c, err := m.browser.NewContext("")
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback context: %w", err)
	}
	return &Session{context: c}, ErrAuthUnavailable
}

// restore builds a context from the persisted storage state and checks it
// still carries an authenticated session.
func (m *Manager) restore(ctx context.Context) (*Session, bool) {
	if _, err := os.Stat(m.stateFile); err != nil {
		return nil, false
	}

	c, err := m.browser.NewContext(m.stateFile)
	if err != nil {
		m.logger.Warn("failed to restore session context", "error", err)
		return nil, false
	}

	ok, err := m.validate(c)
	if err != nil {
		m.logger.Warn("session validation failed", "error", err)
	}
	if !ok {
		c.Close()
		return nil, false
	}

	m.logger.Info("restored authenticated session", "state_file", m.stateFile)
	return &Session{context: c, authenticated: true}, true
}

// validate loads an account page that requires login and checks for the
// signed-in marker.
func (m *Manager) validate(c playwright.BrowserContext) (bool, error) {
	page, err := c.NewPage()
	if err != nil {
		return false, fmt.Errorf("failed to create validation page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto(accountPageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return false, fmt.Errorf("failed to load account page: %w", err)
	}

	title, err := page.Title()
	if err != nil {
		return false, fmt.Errorf("failed to read page title: %w", err)
	}

	content, err := page.Content()
	if err != nil {
		return false, fmt.Errorf("failed to read page content: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return false, fmt.Errorf("failed to parse account page: %w", err)
	}

	return IsSignedIn(title, doc), nil
}

// IsSignedIn reports whether a loaded account page shows an authenticated
// state rather than a sign-in redirect.
func IsSignedIn(title string, doc *goquery.Document) bool {
	if strings.Contains(title, "Sign In") || strings.Contains(title, "Sign-In") {
		return false
	}

	if doc.Find("form[name='signIn']").Length() > 0 {
		return false
	}

	if doc.Find("#ap_email, #ap_email_login, #ap_password").Length() > 0 {
		return false
	}

	return true
}

// interactiveLogin opens a headful window on the sign-in page, blocks until
// the operator confirms or the timeout elapses, and persists the resulting
// cookies.
func (m *Manager) interactiveLogin(ctx context.Context) error {
	ib, ic, err := m.browser.NewInteractiveContext()
	if err != nil {
		return fmt.Errorf("failed to open interactive context: %w", err)
	}
	defer ib.Close()

	page, err := ic.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	if _, err := page.Goto(signInURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to load sign-in page: %w", err)
	}

	m.logger.Info("waiting for manual login", "timeout", m.loginTimeout)
	if err := WaitForConfirm(ctx, m.confirmer, m.loginTimeout,
		"Please log in manually and press Enter after completing login..."); err != nil {
		return fmt.Errorf("manual login not confirmed: %w", err)
	}

	ok, err := m.validate(ic)
	if err != nil {
		return fmt.Errorf("failed to verify login: %w", err)
	}
	if !ok {
		return fmt.Errorf("account page still shows sign-in form")
	}

	if _, err := ic.StorageState(m.stateFile); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}

	m.logger.Info("login confirmed, session state saved", "state_file", m.stateFile)
	return nil
}

// WaitForConfirm runs the confirmer and bounds it by the timeout and the
// run context.
func WaitForConfirm(ctx context.Context, confirmer Confirmer, timeout time.Duration, prompt string) error {
	done := make(chan error, 1)
	go func() {
		done <- confirmer.Confirm(prompt)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
