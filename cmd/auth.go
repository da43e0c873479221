package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/server"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/urfave/cli/v3"
)

// authTimeout bounds how long the local callback server waits for consent.
const authTimeout = 5 * time.Minute

// grantLister is implemented by stores that can enumerate sessions.
type grantLister interface {
	List(ctx context.Context) ([]*models.Grant, error)
}

// authorize serves the redirect URI locally until Google calls back with the code for consentURL.
func (r *Runner) authorize(ctx context.Context, consentURL string, openBrowser bool) error {
	redirect, err := url.Parse(r.config.Credentials.YouTube.RedirectURI)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q is not an absolute URL", shared.ErrInvalidConfig, r.config.Credentials.YouTube.RedirectURI)
	}

	handler := server.NewOAuthHandler(r.manager, cliSession, redirect.Path)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(handler)

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(ctx, server.NewHTTPServer(redirect.Host, router), ln, r.logger)
	}()

	r.writePlainln("Authorize YouTube access by visiting:")
	r.writePlain("%s\n\n", consentURL)
	if openBrowser {
		if err := r.open(consentURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}
	r.writePlain("Waiting for authorization on %s ...\n", redirect.String())

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case <-ctx.Done():
		cancel()
		<-served
		return fmt.Errorf("%w: no callback received: %w", shared.ErrAuthorizationRequired, ctx.Err())
	}

	cancel()
	if err := <-served; err != nil {
		r.logger.Warn("callback server shutdown failed", "error", err)
	}

	if err := result.Error(); err != nil {
		return err
	}

	r.logger.Info("youtube authorized", "session", cliSession, "expiry", result.Grant.Expiry)
	return r.writePlain("✓ YouTube authorization successful\n")
}

// AuthLogin runs the local OAuth flow for the terminal session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	return r.authorize(ctx, r.manager.AuthURL(cliSession), !cmd.Bool("no-browser"))
}

// AuthStatus prints the stored grant of the terminal session, or of every session with --all.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(ctx); err != nil {
		return err
	}

	if cmd.Bool("all") {
		lister, ok := r.grants.(grantLister)
		if !ok {
			return fmt.Errorf("%w: store %q cannot list sessions", shared.ErrInvalidArgument, r.config.Store.Driver)
		}
		grants, err := lister.List(ctx)
		if err != nil {
			return err
		}

		r.writePlainHeader(fmt.Sprintf("Sessions (%d)", len(grants)))
		for _, g := range grants {
			r.writePlain("%-38s expires %s\n", g.SessionID, g.Expiry.Format(time.RFC3339))
		}
		return nil
	}

	grant, err := r.manager.Grant(ctx, cliSession)
	if errors.Is(err, shared.ErrGrantNotFound) {
		r.writePlain("Authentication: ✗ Not authorized\n")
		return r.writePlain("Run 'sp2yt auth login' to authorize YouTube\n")
	} else if err != nil {
		return err
	}

	r.writePlain("Authentication: ✓ Authorized\n")
	r.writePlain("Store: %s\n", r.config.Store.Driver)
	if !grant.Expiry.IsZero() {
		state := "valid"
		if time.Now().After(grant.Expiry) {
			state = "expired"
		}
		r.writePlain("Access token: %s (expires %s)\n", state, grant.Expiry.Format(time.RFC3339))
	}
	if grant.RefreshToken != "" {
		r.writePlain("Refresh token: present\n")
	} else {
		r.writePlain("Refresh token: none\n")
	}
	return nil
}

// AuthRevoke deletes the stored grant of the terminal session.
func (r *Runner) AuthRevoke(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	if err := r.manager.Invalidate(ctx, cliSession); err != nil {
		return err
	}
	r.logger.Info("grant removed", "session", cliSession)
	return r.writePlain("✓ YouTube authorization removed\n")
}
