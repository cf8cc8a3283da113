package model

import "context"

// PageFetcher retrieves the visible text of a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Notifier delivers composed drafts somewhere a human will read them.
type Notifier interface {
	Notify(drafts []Draft) error
}
