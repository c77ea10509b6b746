package repository

import (
	"context"

	"github.com/user/serp-rank-service/internal/entity"
)

// BrowserLauncher starts browser instances.
type BrowserLauncher interface {
	// Launch starts an isolated browser and returns a handle to its active tab.
	// The returned Browser has not navigated anywhere yet.
	Launch(ctx context.Context, opts entity.LaunchOptions) (Browser, error)
}

// Browser is the driver capability the search loop needs. All waits are
// bounded by the deadline of ctx. Implementations are used from a single
// goroutine.
type Browser interface {
	// Navigate loads url in the active tab.
	Navigate(ctx context.Context, url string) error
	// SubmitQuery waits for the element matched by selector, clears it, types
	// query and presses Enter.
	SubmitQuery(ctx context.Context, selector, query string) error
	// Links waits for hyperlinks on the active tab and returns them in
	// document order with resolved hrefs.
	Links(ctx context.Context) ([]entity.Link, error)
	// ClickLink clicks a link previously returned by Links.
	ClickLink(ctx context.Context, link entity.Link) error
	// ClickNext waits for the element matched by selector, scrolls it into
	// view and clicks it.
	ClickNext(ctx context.Context, selector string) error
	// OpenTab opens a new tab, focuses it and loads url. The previous tab
	// stays open in the background.
	OpenTab(ctx context.Context, url string) error
	// Page returns the active tab's URL, title and markup.
	Page(ctx context.Context) (entity.PageInfo, error)
	// Close terminates the browser process. It is safe to call more than once.
	Close() error
}
