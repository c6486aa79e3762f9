// internal/shop/target.go
package shop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cartpilot/api/schemas"
	"github.com/xkilldash9x/cartpilot/internal/aiclient"
	"github.com/xkilldash9x/cartpilot/internal/browser"
	"github.com/xkilldash9x/cartpilot/internal/config"
	"github.com/xkilldash9x/cartpilot/internal/sites"
)

// Page is the browser surface the workflow drives. browser.Page satisfies it;
// tests substitute a fake.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Visible(ctx context.Context, selector string) (bool, error)
	TypeHuman(ctx context.Context, selector, text string, keyDelay time.Duration) error
	PressKey(ctx context.Context, key string) error
	HTML(ctx context.Context, scope string) (string, error)
	Location(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Observer is the AI observation/extraction surface. aiclient.Client
// satisfies it.
type Observer interface {
	Observe(ctx context.Context, opts aiclient.ObserveOptions) ([]schemas.CandidateAction, error)
	Extract(ctx context.Context, opts aiclient.ExtractOptions, out any) error
}

// PageFactory opens the target's page. The default implementation attaches a
// new tab to the shared browser session and navigates to the profile's home.
type PageFactory func(ctx context.Context) (Page, error)

// ClientFactory binds an AI client to an already open page.
type ClientFactory func(ctx context.Context, page Page) (Observer, error)

// Target owns one site's page and AI client bindings. State is explicit and
// per-instance; two targets never share a page. The memoized fields are not
// safe for concurrent first use; the workflow is single-goroutine.
type Target struct {
	profile sites.Profile
	logger  *zap.Logger

	newPage   PageFactory
	newClient ClientFactory

	page   Page
	client Observer
}

// TargetOption overrides a Target's factories, for tests.
type TargetOption func(*Target)

// WithPageFactory substitutes the page constructor.
func WithPageFactory(f PageFactory) TargetOption {
	return func(t *Target) { t.newPage = f }
}

// WithClientFactory substitutes the AI client constructor.
func WithClientFactory(f ClientFactory) TargetOption {
	return func(t *Target) { t.newClient = f }
}

// NewTarget wires a target for one site profile against the shared browser
// session. Nothing is opened until Page or Client is first called.
func NewTarget(profile sites.Profile, cfg *config.Config, session *browser.Session, logger *zap.Logger, opts ...TargetOption) *Target {
	t := &Target{
		profile: profile,
		logger:  logger.Named("target").With(zap.String("site", profile.Name)),
	}
	t.newPage = func(ctx context.Context) (Page, error) {
		allocCtx, err := session.Allocator(ctx)
		if err != nil {
			return nil, err
		}
		return browser.NewPage(allocCtx, profile.HomeURL, t.logger)
	}
	t.newClient = func(ctx context.Context, page Page) (Observer, error) {
		return aiclient.New(ctx, cfg.AI, page, t.logger)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Profile returns the site profile this target automates.
func (t *Target) Profile() sites.Profile {
	return t.profile
}

// Page returns the memoized page, opening it at the profile's home URL on
// first call. Exactly one home navigation happens per target.
func (t *Target) Page(ctx context.Context) (Page, error) {
	if t.page != nil {
		return t.page, nil
	}
	page, err := t.newPage(ctx)
	if err != nil {
		return nil, err
	}
	t.page = page
	return t.page, nil
}

// Client returns the memoized AI client, building it on first call. The page
// is created first when it does not exist yet, since the client binds to a
// live page.
func (t *Target) Client(ctx context.Context) (Observer, error) {
	if t.client != nil {
		return t.client, nil
	}
	page, err := t.Page(ctx)
	if err != nil {
		return nil, err
	}
	client, err := t.newClient(ctx, page)
	if err != nil {
		return nil, err
	}
	t.client = client
	return t.client, nil
}

// Close releases the target's page, if one was opened.
func (t *Target) Close() error {
	if t.page == nil {
		return nil
	}
	return t.page.Close()
}
