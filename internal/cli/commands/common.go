package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/cli/auth"
	"github.com/crypgo-dev/crypgo-web/internal/config"
	"github.com/crypgo-dev/crypgo-web/internal/forms"
	"github.com/crypgo-dev/crypgo-web/internal/routes"
	"github.com/crypgo-dev/crypgo-web/internal/session"
)

// ErrSessionExpired is returned when the backend no longer accepts the stored admin cookie
var ErrSessionExpired = errors.New("admin session expired. Please run 'crypgo-admin login' again")

// errExpired stands in for a 401 from calls that report it as an empty result
var errExpired = &api.Error{Kind: api.KindAuth, Status: http.StatusUnauthorized, Message: "Unauthorized"}

// Env carries what every command needs to reach the backend
type Env struct {
	BackendURL string
	CookieName string
	Timeout    time.Duration
	JSON       bool

	Tokens       auth.TokenStore
	Out          io.Writer
	ReadPassword func() (string, error)
	HTTPClient   *http.Client
	Logger       zerolog.Logger

	forms *forms.Validator
}

// NewEnv returns an Env for the configured backend using the OS keyring and
// a terminal password prompt
func NewEnv(cfg *config.Config, logger zerolog.Logger) *Env {
	return &Env{
		BackendURL:   cfg.Backend.URL,
		CookieName:   cfg.Cookies.Admin,
		Timeout:      cfg.Backend.Timeout,
		Tokens:       auth.Default,
		Out:          os.Stdout,
		ReadPassword: promptPassword,
		Logger:       logger,
	}
}

// promptPassword reads a password from the terminal without echoing it
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password is required in non-interactive mode (use --password flag or CRYPGO_ADMIN_PASSWORD env var)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// client builds an API client for the backend, carrying cookie as the admin session if set
func (e *Env) client(cookie string) *api.Client {
	backend := config.BackendConfig{URL: e.BackendURL}
	c := api.New(backend.BaseURL(), e.Timeout, e.Logger)
	if e.HTTPClient != nil {
		c.SetHTTPClient(e.HTTPClient)
	}
	if cookie == "" {
		return c
	}
	return c.WithCookies(&http.Cookie{Name: e.CookieName, Value: cookie})
}

// newSession wraps client in an admin session context
func (e *Env) newSession(client *api.Client) *session.Admin {
	return session.NewAdmin(client, session.NewRecorder(), routes.Default(), e.Logger)
}

// adminSession loads the stored admin cookie and returns a session using it
func (e *Env) adminSession() (*session.Admin, error) {
	token, err := e.Tokens.LoadToken(e.BackendURL)
	if err != nil {
		return nil, err
	}
	return e.newSession(e.client(token)), nil
}

// validate normalizes and checks a form from the forms package
func (e *Env) validate(form any) error {
	if e.forms == nil {
		e.forms = forms.New()
	}
	return e.forms.Validate(form)
}

// check turns backend errors into command errors. A rejected session cookie
// is dropped from the token store.
func (e *Env) check(err error) error {
	if err == nil {
		return nil
	}
	if api.IsAuth(err) {
		if delErr := e.Tokens.DeleteToken(e.BackendURL); delErr != nil {
			e.Logger.Warn().Err(delErr).Msg("Failed to drop rejected admin session")
		}
		return ErrSessionExpired
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Kind == api.KindNetwork && apiErr.Err != nil {
		return fmt.Errorf("cannot reach backend at %s: %w", e.BackendURL, apiErr.Err)
	}
	return err
}

// run executes call against the stored admin session
func run[T any](ctx context.Context, e *Env, call func(context.Context, *session.Admin) (T, error)) (T, error) {
	var zero T
	admin, err := e.adminSession()
	if err != nil {
		return zero, err
	}
	out, err := call(ctx, admin)
	if err != nil {
		return zero, e.check(err)
	}
	return out, nil
}

// render prints v as indented JSON when --json is set, otherwise as a table
func (e *Env) render(v any, table func(w *tabwriter.Writer)) error {
	if e.JSON {
		enc := json.NewEncoder(e.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(e.Out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

// deref returns the value of s or a dash
func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// metadataString reads a string field of a loosely typed metadata map
func metadataString(m map[string]any, key string) string {
	if v, ok := m[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return "-"
}
