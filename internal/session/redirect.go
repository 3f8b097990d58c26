package session

import (
	"context"
	"net/url"

	"github.com/charmbracelet/log"
)

// BrowserRedirector opens backend pages in the system browser.
type BrowserRedirector struct {
	BaseURL string
	// LoginQuery is appended to the login redirect (redirect_uri, state).
	LoginQuery url.Values
	// Open launches the URL. When nil the URL is only logged, for headless use.
	Open   func(url string) error
	Logger *log.Logger
}

func (b *BrowserRedirector) Redirect(ctx context.Context, path string) error {
	target := b.URL(path)
	if b.Logger != nil {
		b.Logger.Info("redirecting", "url", target)
	}
	if b.Open == nil {
		return nil
	}
	return b.Open(target)
}

// URL returns the absolute redirect target for path.
func (b *BrowserRedirector) URL(path string) string {
	target := b.BaseURL + path
	if path == LoginPath && len(b.LoginQuery) > 0 {
		target += "?" + b.LoginQuery.Encode()
	}
	return target
}
