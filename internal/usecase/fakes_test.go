package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/internal/repository"
)

// serp describes what the fake search engine returns for one query.
type serp struct {
	firstPage  []string
	hasNext    bool
	secondPage []string
}

type fakeLauncher struct {
	mu sync.Mutex

	results     map[string]serp
	captchas    map[string]int // challenge pages left per query
	submitErr   map[string]error
	panicOn     map[string]bool
	failLaunch  map[int]bool // 1-based launch numbers that fail
	onSubmit    func(query string)
	closeErr    error
	launches    int
	browsers    []*fakeBrowser
	submits     []string
	nextClicks  []string
	clickedURLs []string
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		results:    map[string]serp{},
		captchas:   map[string]int{},
		submitErr:  map[string]error{},
		panicOn:    map[string]bool{},
		failLaunch: map[int]bool{},
	}
}

func (l *fakeLauncher) Launch(ctx context.Context, opts entity.LaunchOptions) (repository.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.failLaunch[l.launches] {
		return nil, errors.New("chrome not found")
	}
	b := &fakeBrowser{launcher: l, opts: opts}
	l.browsers = append(l.browsers, b)
	return b, nil
}

func (l *fakeLauncher) submitCount(query string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, q := range l.submits {
		if q == query {
			n++
		}
	}
	return n
}

func (l *fakeLauncher) snapshot() (launches int, submits, nextClicks []string, browsers []*fakeBrowser) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches, append([]string(nil), l.submits...), append([]string(nil), l.nextClicks...), append([]*fakeBrowser(nil), l.browsers...)
}

type fakeBrowser struct {
	launcher *fakeLauncher
	opts     entity.LaunchOptions

	// guarded by launcher.mu
	query     string
	page      int
	challenge bool
	tabs      int
	closes    int
	navigated []string
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	b.page = 0
	b.challenge = false
	b.navigated = append(b.navigated, url)
	return nil
}

func (b *fakeBrowser) SubmitQuery(ctx context.Context, selector, query string) error {
	b.launcher.mu.Lock()
	hook := b.launcher.onSubmit
	b.launcher.submits = append(b.launcher.submits, query)
	err := b.launcher.submitErr[query]
	if err == nil {
		b.query = query
		b.page = 1
		if b.launcher.captchas[query] > 0 {
			b.launcher.captchas[query]--
			b.challenge = true
		}
	}
	b.launcher.mu.Unlock()

	if hook != nil {
		hook(query)
	}
	return err
}

func (b *fakeBrowser) Links(ctx context.Context) ([]entity.Link, error) {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	if b.launcher.panicOn[b.query] {
		panic("driver exploded")
	}
	res := b.launcher.results[b.query]
	hrefs := res.firstPage
	if b.page == 2 {
		hrefs = res.secondPage
	}
	if len(hrefs) == 0 {
		return nil, context.DeadlineExceeded
	}
	links := make([]entity.Link, len(hrefs))
	for i, h := range hrefs {
		links[i] = entity.Link{Href: h, Index: i}
	}
	return links, nil
}

func (b *fakeBrowser) ClickLink(ctx context.Context, link entity.Link) error {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	b.launcher.clickedURLs = append(b.launcher.clickedURLs, link.Href)
	return nil
}

func (b *fakeBrowser) ClickNext(ctx context.Context, selector string) error {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	b.launcher.nextClicks = append(b.launcher.nextClicks, b.query)
	if !b.launcher.results[b.query].hasNext {
		return context.DeadlineExceeded
	}
	b.page = 2
	return nil
}

func (b *fakeBrowser) OpenTab(ctx context.Context, url string) error {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	b.tabs++
	b.page = 0
	return nil
}

func (b *fakeBrowser) Page(ctx context.Context) (entity.PageInfo, error) {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	if b.challenge {
		return entity.PageInfo{
			URL:   "https://www.google.com/sorry/index?continue=x",
			Title: "https://www.google.com/search",
		}, nil
	}
	return entity.PageInfo{
		URL:   fmt.Sprintf("https://www.google.com/search?q=%s", b.query),
		Title: b.query + " - Google Search",
	}, nil
}

func (b *fakeBrowser) Close() error {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	b.closes++
	return b.launcher.closeErr
}

func (b *fakeBrowser) stats() (tabs, closes int) {
	b.launcher.mu.Lock()
	defer b.launcher.mu.Unlock()
	return b.tabs, b.closes
}

func testSessionOptions() SessionOptions {
	opts := DefaultSessionOptions()
	opts.ClickSettle = 0
	opts.InteractionTimeout = time.Second
	return opts
}

func newTestController(l *fakeLauncher) *runControllerUseCase {
	return NewRunController(l, nil, nil, nil, ControllerOptions{
		Session:           testSessionOptions(),
		PausePollInterval: 5 * time.Millisecond,
	}).(*runControllerUseCase)
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// blockingArchive holds every Save until release is closed.
type blockingArchive struct {
	mu      sync.Mutex
	saved   []*entity.RunRecord
	entered chan string
	release chan struct{}
}

func newBlockingArchive() *blockingArchive {
	return &blockingArchive{entered: make(chan string, 4), release: make(chan struct{})}
}

func (a *blockingArchive) Save(ctx context.Context, record *entity.RunRecord) error {
	a.entered <- record.RunID
	<-a.release
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, record)
	return nil
}

func (a *blockingArchive) Close() error { return nil }

func (a *blockingArchive) records() []*entity.RunRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*entity.RunRecord(nil), a.saved...)
}
