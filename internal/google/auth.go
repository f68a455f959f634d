package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/tasks/v1"
)

// Scopes requested from the user: read-only calendar and tasks.
var Scopes = []string{calendar.CalendarReadonlyScope, tasks.TasksReadonlyScope}

// OAuthConfig returns the OAuth2 config for the registered application.
// It prioritizes an explicit client id and secret over the client secrets file.
func OAuthConfig(clientID, clientSecret, secretsFile string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(secretsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or download the client secrets file from the Google Cloud Console", secretsFile)
		}
		return nil, fmt.Errorf("unable to read client secrets file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secrets file to config: %w", err)
	}
	return config, nil
}

// HTTPClient returns an authorized HTTP client. A cached token in tokenFile
// is reused while it can still be refreshed; otherwise the interactive flow
// is run and its token cached. Refresh failures other than a rejected grant
// are returned as errors.
func HTTPClient(ctx context.Context, logger *slog.Logger, config *oauth2.Config, tokenFile string, show func(authURL string)) (*http.Client, error) {
	token, err := tokenFromFile(tokenFile)
	switch {
	case err == nil:
		fresh, err := config.TokenSource(ctx, token).Token()
		if err == nil {
			if fresh.AccessToken != token.AccessToken {
				logger.Debug("Token refreshed.", "file", tokenFile)
				if err := SaveToken(tokenFile, fresh); err != nil {
					logger.Warn("Failed to save refreshed token", "file", tokenFile, "error", err)
				}
			}
			return config.Client(ctx, fresh), nil
		}
		if !needsConsent(token, err) {
			return nil, fmt.Errorf("failed to refresh cached token: %w", err)
		}
		logger.Warn("Cached token expired or revoked, starting authorization.", "file", tokenFile, "error", err)
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("No cached token found, starting authorization.", "file", tokenFile)
	default:
		logger.Warn("Could not read cached token, starting authorization.", "file", tokenFile, "error", err)
	}

	token, err = Authorize(ctx, config, show)
	if err != nil {
		return nil, err
	}
	if err := SaveToken(tokenFile, token); err != nil {
		logger.Warn("Failed to save token", "file", tokenFile, "error", err)
	}
	return config.Client(ctx, token), nil
}

// needsConsent reports whether a failed refresh of token can only be fixed by
// the user: the token endpoint rejected the grant, or there is nothing to
// refresh with.
func needsConsent(token *oauth2.Token, err error) bool {
	if token.RefreshToken == "" {
		return true
	}
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) || rerr.Response == nil {
		return false
	}
	return rerr.Response.StatusCode == http.StatusBadRequest || rerr.Response.StatusCode == http.StatusUnauthorized
}

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the installed-app flow: it listens on a loopback port,
// hands the consent URL to show and exchanges the code delivered to the
// callback for a token.
func Authorize(ctx context.Context, config *oauth2.Config, show func(authURL string)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to open callback listener: %w", err)
	}

	cfg := *config
	cfg.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	results := make(chan callbackResult, 1)

	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go srv.Serve(ln)
	defer srv.Close()

	show(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)))

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, fmt.Errorf("authorization failed: %w", res.err)
	}

	token, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("unable to exchange authorization code: %w", err)
	}
	return token, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("consent denied: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("state mismatch in callback")
		case q.Get("code") == "":
			res.err = errors.New("no code in callback")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You may close this window.")
		}

		select {
		case results <- res:
		default:
		}
	})
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
