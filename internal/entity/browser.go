package entity

// LaunchOptions configures one browser instance.
type LaunchOptions struct {
	ExecPath     string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	Proxy        string
}

// PageInfo is what challenge detection looks at after a navigation.
type PageInfo struct {
	URL   string
	Title string
	HTML  string
}

// Link is a hyperlink on the current page. Index is its position in document
// order and is only meaningful until the next navigation.
type Link struct {
	Href  string
	Index int
}
