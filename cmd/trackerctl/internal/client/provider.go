// Package client builds the session manager and API client shared by all
// trackerctl commands.
package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/apptracker/application-tracker/cmd/trackerctl/internal/auth"
	"github.com/apptracker/application-tracker/cmd/trackerctl/internal/config"
	"github.com/apptracker/application-tracker/pkg/apiclient"
	"github.com/apptracker/application-tracker/pkg/session"
)

// Provider lazily builds one session manager per process. The credential
// source is resolved on first sign-in or refresh, so commands that only read
// the stored credential never touch the identity provider.
type Provider struct {
	cfg *config.Config
	log zerolog.Logger

	once    sync.Once
	manager *session.Manager
	store   *auth.FileStore
	err     error
}

func NewProvider(cfg *config.Config, log zerolog.Logger) *Provider {
	return &Provider{cfg: cfg, log: log}
}

// Manager returns the session manager, restored from the credential file.
func (p *Provider) Manager() (*session.Manager, error) {
	p.once.Do(func() {
		p.store, p.err = auth.NewFileStore(p.cfg.ConfigDir)
		if p.err != nil {
			return
		}
		p.manager = session.NewManager(
			&lazySource{resolve: p.resolveSource},
			session.WithStore(p.store),
			session.WithLogger(p.log.With().Str("component", "session").Logger()),
		)
		p.manager.Subscribe(func(s session.Session) {
			ev := p.log.Debug().Bool("authenticated", s.Authenticated).Str("principal", s.Principal())
			if s.LastError != nil {
				ev = ev.AnErr("last_error", s.LastError)
			}
			ev.Msg("auth state")
		})
		p.err = p.manager.Restore()
	})
	return p.manager, p.err
}

// APIClient returns a client that authenticates with the managed session.
func (p *Provider) APIClient() (*apiclient.Client, error) {
	m, err := p.Manager()
	if err != nil {
		return nil, err
	}
	return apiclient.New(p.cfg.ServerURL, m,
		apiclient.WithHTTPClient(&http.Client{Timeout: p.cfg.Timeout}),
		apiclient.WithLogger(p.log.With().Str("component", "apiclient").Logger()),
	), nil
}

func (p *Provider) resolveSource(ctx context.Context) (session.CredentialSource, error) {
	var opts []session.OAuth2Option
	if p.cfg.UseIDToken {
		opts = append(opts, session.WithIDTokenBearer())
	}
	if p.cfg.Issuer != "" {
		return session.DiscoverOAuth2Source(ctx, p.cfg.Issuer, p.cfg.ClientID, p.cfg.ClientSecret, p.cfg.Scopes, opts...)
	}
	if p.cfg.TokenURL == "" {
		return nil, errors.New("set TRACKER_ISSUER or TRACKER_TOKEN_URL")
	}
	return session.NewOAuth2Source(&oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: p.cfg.TokenURL},
		Scopes:       p.cfg.Scopes,
	}, opts...), nil
}

// lazySource defers building the real CredentialSource until it is needed.
// A failed resolution is retried on the next call.
type lazySource struct {
	resolve func(ctx context.Context) (session.CredentialSource, error)

	mu  sync.Mutex
	src session.CredentialSource
}

func (l *lazySource) get(ctx context.Context) (session.CredentialSource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.src != nil {
		return l.src, nil
	}
	src, err := l.resolve(ctx)
	if err != nil {
		return nil, &session.AuthFailure{Reason: session.Unknown, Message: err.Error(), Cause: err}
	}
	l.src = src
	return src, nil
}

func (l *lazySource) Exchange(ctx context.Context, creds session.SubjectCredentials) (*session.Credential, error) {
	src, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return src.Exchange(ctx, creds)
}

func (l *lazySource) Refresh(ctx context.Context, current *session.Credential) (*session.Credential, error) {
	src, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return src.Refresh(ctx, current)
}
