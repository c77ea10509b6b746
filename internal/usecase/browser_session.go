package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/internal/repository"
	"github.com/user/serp-rank-service/pkg/identity"
	"github.com/user/serp-rank-service/pkg/metrics"
)

const (
	DefaultStartPage          = "https://www.google.com"
	DefaultSearchBoxSelector  = `[name="q"]`
	DefaultNextPageSelector   = "#pnnext"
	DefaultInteractionTimeout = 15 * time.Second
	DefaultClickSettle        = 2 * time.Second
	DefaultRecycleThreshold   = 20
)

// SessionOptions configures a BrowserSession.
type SessionOptions struct {
	StartPage          string
	SearchBoxSelector  string
	NextPageSelector   string
	InteractionTimeout time.Duration
	// ClickSettle is the fixed wait after clicking a match before a new tab is opened.
	ClickSettle time.Duration
	// RecycleThreshold is the number of matched tabs after which the browser
	// is torn down and relaunched.
	RecycleThreshold int
	// Launch carries the fixed browser settings; ExecPath, UserAgent and
	// Proxy are filled in per launch.
	Launch entity.LaunchOptions
}

// DefaultSessionOptions returns the settings the service runs with when nothing is configured.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		StartPage:          DefaultStartPage,
		SearchBoxSelector:  DefaultSearchBoxSelector,
		NextPageSelector:   DefaultNextPageSelector,
		InteractionTimeout: DefaultInteractionTimeout,
		ClickSettle:        DefaultClickSettle,
		RecycleThreshold:   DefaultRecycleThreshold,
		Launch: entity.LaunchOptions{
			WindowWidth:  1200,
			WindowHeight: 800,
		},
	}
}

func (o SessionOptions) withDefaults() SessionOptions {
	d := DefaultSessionOptions()
	if o.StartPage == "" {
		o.StartPage = d.StartPage
	}
	if o.SearchBoxSelector == "" {
		o.SearchBoxSelector = d.SearchBoxSelector
	}
	if o.NextPageSelector == "" {
		o.NextPageSelector = d.NextPageSelector
	}
	if o.InteractionTimeout <= 0 {
		o.InteractionTimeout = d.InteractionTimeout
	}
	if o.ClickSettle < 0 {
		o.ClickSettle = 0
	}
	if o.RecycleThreshold <= 0 {
		o.RecycleThreshold = d.RecycleThreshold
	}
	if o.Launch.WindowWidth <= 0 || o.Launch.WindowHeight <= 0 {
		o.Launch.WindowWidth, o.Launch.WindowHeight = d.Launch.WindowWidth, d.Launch.WindowHeight
	}
	return o
}

// BrowserSession owns exactly one live browser at a time and counts the
// tabs left open by matches since the last launch.
type BrowserSession struct {
	launcher   repository.BrowserLauncher
	identities *identity.Rotator
	opts       SessionOptions
	logf       func(format string, args ...any)

	execPath   string
	browser    repository.Browser
	openedTabs int
}

// NewBrowserSession creates a session. logf receives run-log lines; identities may be nil.
func NewBrowserSession(launcher repository.BrowserLauncher, identities *identity.Rotator, opts SessionOptions, logf func(string, ...any)) *BrowserSession {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &BrowserSession{
		launcher:   launcher,
		identities: identities,
		opts:       opts.withDefaults(),
		logf:       logf,
	}
}

// Launch starts a browser from execPath and parks it on the start page.
// A live browser is torn down first. Any failure is wrapped in repository.ErrLaunch.
func (s *BrowserSession) Launch(ctx context.Context, execPath string) error {
	if s.browser != nil {
		if err := s.Teardown(); err != nil {
			s.logf("Browser teardown reported: %v", err)
		}
	}
	if execPath != "" {
		if _, err := os.Stat(execPath); err != nil {
			return fmt.Errorf("%w: %w", repository.ErrLaunch, err)
		}
	}
	s.execPath = execPath

	opts := s.opts.Launch
	opts.ExecPath = execPath
	if s.identities != nil {
		id := s.identities.Next()
		opts.UserAgent = id.UserAgent
		opts.Proxy = id.Proxy
	}

	browser, err := s.launcher.Launch(ctx, opts)
	if err != nil {
		if errors.Is(err, repository.ErrLaunch) {
			return err
		}
		return fmt.Errorf("%w: %w", repository.ErrLaunch, err)
	}
	s.browser = browser
	s.openedTabs = 0

	if err := s.NavigateStart(ctx); err != nil {
		_ = s.Teardown()
		return fmt.Errorf("%w: open start page: %w", repository.ErrLaunch, err)
	}
	return nil
}

// NavigateStart loads the neutral start page in the active tab.
func (s *BrowserSession) NavigateStart(ctx context.Context) error {
	if s.browser == nil {
		return errNoBrowser
	}
	wctx, cancel := context.WithTimeout(ctx, s.opts.InteractionTimeout)
	defer cancel()
	return interactionErr(s.browser.Navigate(wctx, s.opts.StartPage))
}

// SubmitSearch types query into the search box and submits it.
func (s *BrowserSession) SubmitSearch(ctx context.Context, query string) error {
	if s.browser == nil {
		return errNoBrowser
	}
	wctx, cancel := context.WithTimeout(ctx, s.opts.InteractionTimeout)
	defer cancel()
	if err := s.browser.SubmitQuery(wctx, s.opts.SearchBoxSelector, query); err != nil {
		return fmt.Errorf("submit search %q: %w", query, interactionErr(err))
	}
	return nil
}

// Page returns what the active tab is showing.
func (s *BrowserSession) Page(ctx context.Context) (entity.PageInfo, error) {
	if s.browser == nil {
		return entity.PageInfo{}, errNoBrowser
	}
	wctx, cancel := context.WithTimeout(ctx, s.opts.InteractionTimeout)
	defer cancel()
	page, err := s.browser.Page(wctx)
	return page, interactionErr(err)
}

// FindAndClickMatch clicks the first link, in document order, whose href
// contains targetDomain. A missing match, a link wait timeout or a failed
// click all report false without an error. The only error returned is
// repository.ErrLaunch from a recycle that could not relaunch the browser;
// the match is still reported in that case.
func (s *BrowserSession) FindAndClickMatch(ctx context.Context, targetDomain string) (string, bool, error) {
	if s.browser == nil {
		return "", false, nil
	}

	lctx, cancel := context.WithTimeout(ctx, s.opts.InteractionTimeout)
	links, err := s.browser.Links(lctx)
	cancel()
	if err != nil {
		s.logf("Link scan gave up: %v", interactionErr(err))
		return "", false, nil
	}

	var match *entity.Link
	for i := range links {
		if links[i].Href != "" && strings.Contains(links[i].Href, targetDomain) {
			match = &links[i]
			break
		}
	}
	if match == nil {
		return "", false, nil
	}

	s.logf("Found and clicking: %s", match.Href)
	cctx, cancel := context.WithTimeout(ctx, s.opts.InteractionTimeout)
	err = s.browser.ClickLink(cctx, *match)
	cancel()
	if err != nil {
		s.logf("Click on %s failed: %v", match.Href, interactionErr(err))
		return "", false, nil
	}
	sleepCtx(ctx, s.opts.ClickSettle)

	return match.Href, true, s.parkAfterMatch(ctx)
}

// parkAfterMatch leaves the matched page in a background tab and puts the
// active tab back on the start page, recycling the browser at the threshold.
func (s *BrowserSession) parkAfterMatch(ctx context.Context) error {
	s.openedTabs++
	if s.openedTabs >= s.opts.RecycleThreshold {
		s.logf("%d tabs opened. Restarting browser.", s.openedTabs)
		if err := s.Teardown(); err != nil {
			s.logf("Browser teardown reported: %v", err)
		}
		metrics.BrowserRecyclesTotal.Inc()
		return s.Launch(ctx, s.execPath)
	}

	wctx, cancel := context.WithTimeout(ctx, s.opts.InteractionTimeout)
	defer cancel()
	if err := s.browser.OpenTab(wctx, s.opts.StartPage); err != nil {
		s.logf("Opening a fresh tab failed: %v", interactionErr(err))
	}
	return nil
}

// ClickNext moves to the next results page.
func (s *BrowserSession) ClickNext(ctx context.Context) error {
	if s.browser == nil {
		return errNoBrowser
	}
	wctx, cancel := context.WithTimeout(ctx, s.opts.InteractionTimeout)
	defer cancel()
	return interactionErr(s.browser.ClickNext(wctx, s.opts.NextPageSelector))
}

// OpenedTabs is the number of matched tabs since the last launch.
func (s *BrowserSession) OpenedTabs() int {
	return s.openedTabs
}

// Teardown terminates the live browser, if any. Calling it again is a no-op.
func (s *BrowserSession) Teardown() error {
	if s.browser == nil {
		return nil
	}
	b := s.browser
	s.browser = nil
	s.openedTabs = 0
	return b.Close()
}

var errNoBrowser = errors.New("no live browser")

// interactionErr maps an expired wait to repository.ErrInteractionTimeout.
func interactionErr(err error) error {
	if err == nil || errors.Is(err, repository.ErrInteractionTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", repository.ErrInteractionTimeout, err)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
