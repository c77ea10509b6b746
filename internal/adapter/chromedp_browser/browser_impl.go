package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/internal/repository"
	"github.com/user/serp-rank-service/pkg/utils"
)

// Launcher starts Chrome instances through chromedp.
type Launcher struct{}

// NewLauncher creates a BrowserLauncher backed by chromedp.
func NewLauncher() *Launcher {
	return &Launcher{}
}

// allocatorOptions builds the exec allocator flags for one browser instance.
func allocatorOptions(opts entity.LaunchOptions) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("incognito", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("ignore-ssl-errors", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	return allocOpts
}

// Launch starts a browser process. The browser lives until Close; ctx only
// bounds the startup.
func (l *Launcher) Launch(ctx context.Context, opts entity.LaunchOptions) (repository.Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(debugf))

	// The first Run must use the context returned by NewContext itself;
	// running it on a derived context would tie the browser's lifetime to it.
	if err := awaitStart(ctx, func() error { return chromedp.Run(tabCtx) }); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %w", repository.ErrLaunch, err)
	}

	slog.Debug("Browser started", "exec_path", opts.ExecPath, "headless", opts.Headless)
	return &Browser{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancels:  []context.CancelFunc{tabCancel},
	}, nil
}

// awaitStart runs start in the background and gives up once ctx ends. The
// caller cancels the target's context to unblock start after giving up.
func awaitStart(ctx context.Context, start func() error) error {
	started := make(chan error, 1)
	go func() { started <- start() }()
	select {
	case err := <-started:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func debugf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...))
}

// Browser drives the active tab of one Chrome process.
type Browser struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancels  []context.CancelFunc
	links       []*cdp.Node
	closeOnce   sync.Once
}

// bind derives a context from the active tab that also ends when ctx does,
// so chromedp actions pick up the caller's deadline.
func (b *Browser) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(b.tabCtx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := b.bind(ctx)
	defer cancel()
	return mapErr(chromedp.Run(runCtx, actions...))
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.links = nil
	return b.run(ctx, chromedp.Navigate(url))
}

func (b *Browser) SubmitQuery(ctx context.Context, selector, query string) error {
	b.links = nil
	return b.run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, query+kb.Enter, chromedp.ByQuery),
	)
}

func (b *Browser) Links(ctx context.Context) ([]entity.Link, error) {
	var nodes []*cdp.Node
	var location string
	err := b.run(ctx,
		chromedp.Nodes("a[href]", &nodes, chromedp.ByQueryAll),
		chromedp.Location(&location),
	)
	if err != nil {
		return nil, err
	}

	b.links = nodes
	links := make([]entity.Link, 0, len(nodes))
	for i, n := range nodes {
		href := n.AttributeValue("href")
		if abs, err := utils.ToAbsoluteURL(location, href); err == nil {
			href = abs
		}
		links = append(links, entity.Link{Href: href, Index: i})
	}
	return links, nil
}

func (b *Browser) ClickLink(ctx context.Context, link entity.Link) error {
	if link.Index < 0 || link.Index >= len(b.links) {
		return fmt.Errorf("link %d is not on the current page", link.Index)
	}
	node := b.links[link.Index]
	return b.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.ScrollIntoViewIfNeeded().WithNodeID(node.NodeID).Do(ctx)
		}),
		chromedp.MouseClickNode(node),
	)
}

func (b *Browser) ClickNext(ctx context.Context, selector string) error {
	b.links = nil
	return b.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// OpenTab opens a tab in the same browser and makes it the active one. The
// previous tab is left open.
func (b *Browser) OpenTab(ctx context.Context, url string) error {
	newCtx, cancel := chromedp.NewContext(b.tabCtx)
	if err := awaitStart(ctx, func() error { return chromedp.Run(newCtx) }); err != nil {
		cancel()
		return mapErr(err)
	}
	b.tabCancels = append(b.tabCancels, cancel)
	b.tabCtx = newCtx
	b.links = nil

	if c := chromedp.FromContext(newCtx); c != nil && c.Target != nil {
		id := c.Target.TargetID
		if err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return target.ActivateTarget(id).Do(ctx)
		})); err != nil {
			slog.Debug("Could not focus new tab", "error", err)
		}
	}
	return b.run(ctx, chromedp.Navigate(url))
}

func (b *Browser) Page(ctx context.Context) (entity.PageInfo, error) {
	var page entity.PageInfo
	err := b.run(ctx,
		chromedp.Location(&page.URL),
		chromedp.Title(&page.Title),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
	)
	return page, err
}

// Close kills the browser process and every tab with it.
func (b *Browser) Close() error {
	b.closeOnce.Do(func() {
		for i := len(b.tabCancels) - 1; i >= 0; i-- {
			b.tabCancels[i]()
		}
		b.allocCancel()
		b.links = nil
	})
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", repository.ErrInteractionTimeout, err)
	}
	return err
}
