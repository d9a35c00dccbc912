package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
)

var (
	ErrCredentialInUse = errors.New("credential already in use")
	ErrNoPrincipal     = errors.New("no principal in request")
	ErrUnknownAccount  = errors.New("unknown account")
	ErrBadCredential   = errors.New("credential requires provider and subject")
)

// Credential is a provider-backed identity that was verified upstream
// (e.g. a Google id token checked by the gateway).
type Credential struct {
	Provider    string `json:"provider"`
	Subject     string `json:"subject"`
	DisplayName string `json:"display_name"`
}

// ConflictError reports that the credential already belongs to a different
// principal. It matches ErrCredentialInUse with errors.Is.
type ConflictError struct {
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("credential already in use by %s", e.ExistingID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrCredentialInUse
}

type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountByCredential(ctx context.Context, provider, subject string) (*models.Account, error)
	CreateAccount(ctx context.Context, a *models.Account) error
	LinkCredential(ctx context.Context, id, provider, subject, displayName string) error
}

// Provider issues anonymous principals, upgrades them to persistent ones and
// signs HS256 tokens carrying the principal.
type Provider struct {
	accounts AccountStore
	auth     *jwtauth.JWTAuth
	tokenTTL time.Duration
	now      func() time.Time
}

func NewProvider(accounts AccountStore, secret string) *Provider {
	return &Provider{
		accounts: accounts,
		auth:     jwtauth.New("HS256", []byte(secret), nil),
		tokenTTL: 30 * 24 * time.Hour,
		now:      time.Now,
	}
}

func (p *Provider) SignInAnonymous(ctx context.Context) (models.Principal, error) {
	now := p.now().UTC()
	acc := &models.Account{
		ID:          uuid.NewString(),
		IsAnonymous: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.accounts.CreateAccount(ctx, acc); err != nil {
		return models.Principal{}, fmt.Errorf("create anonymous account: %w", err)
	}
	return acc.Principal(), nil
}

// AttachPersistentCredential links cred to the principal in place. The
// principal id never changes; if the credential already belongs to another
// account a *ConflictError is returned and nothing is modified.
func (p *Provider) AttachPersistentCredential(ctx context.Context, principal models.Principal, cred Credential) (models.Principal, error) {
	if cred.Provider == "" || cred.Subject == "" {
		return models.Principal{}, ErrBadCredential
	}

	existing, err := p.accounts.FindAccountByCredential(ctx, cred.Provider, cred.Subject)
	switch {
	case err == nil && existing.ID != principal.ID:
		return models.Principal{}, &ConflictError{ExistingID: existing.ID}
	case err == nil:
		return existing.Principal(), nil
	case !errors.Is(err, models.ErrNotFound):
		return models.Principal{}, fmt.Errorf("lookup credential: %w", err)
	}

	if _, err := p.accounts.GetAccount(ctx, principal.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Principal{}, ErrUnknownAccount
		}
		return models.Principal{}, err
	}

	if err := p.accounts.LinkCredential(ctx, principal.ID, cred.Provider, cred.Subject, cred.DisplayName); err != nil {
		return models.Principal{}, fmt.Errorf("link credential: %w", err)
	}
	log.Infof("principal %s linked to %s credential", principal.ID, cred.Provider)

	return models.Principal{ID: principal.ID, IsAnonymous: false, DisplayName: cred.DisplayName}, nil
}

// SignInPersistent returns the account bound to cred, creating it on first use.
func (p *Provider) SignInPersistent(ctx context.Context, cred Credential) (models.Principal, error) {
	if cred.Provider == "" || cred.Subject == "" {
		return models.Principal{}, ErrBadCredential
	}

	existing, err := p.accounts.FindAccountByCredential(ctx, cred.Provider, cred.Subject)
	if err == nil {
		return existing.Principal(), nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.Principal{}, fmt.Errorf("lookup credential: %w", err)
	}

	now := p.now().UTC()
	acc := &models.Account{
		ID:          uuid.NewString(),
		Provider:    cred.Provider,
		Subject:     cred.Subject,
		DisplayName: cred.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.accounts.CreateAccount(ctx, acc); err != nil {
		return models.Principal{}, fmt.Errorf("create account: %w", err)
	}
	return acc.Principal(), nil
}

func (p *Provider) Token(principal models.Principal) (string, error) {
	_, token, err := p.auth.Encode(map[string]interface{}{
		"sub":  principal.ID,
		"anon": principal.IsAnonymous,
		"name": principal.DisplayName,
		"exp":  p.now().Add(p.tokenTTL).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verifier reads the token from the Authorization header or, for WebSocket
// upgrades, the "jwt" query parameter.
func (p *Provider) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(p.auth, jwtauth.TokenFromHeader, jwtauth.TokenFromQuery)
}

// Authenticator rejects requests that carry no valid principal. Rejections
// go through fail so callers can answer in their own response format.
func (p *Provider) Authenticator(fail func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := PrincipalFromContext(r.Context()); err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext extracts the principal placed by Verifier.
func PrincipalFromContext(ctx context.Context) (models.Principal, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return models.Principal{}, ErrNoPrincipal
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.Principal{}, ErrNoPrincipal
	}
	anon, _ := claims["anon"].(bool)
	name, _ := claims["name"].(string)

	return models.Principal{ID: sub, IsAnonymous: anon, DisplayName: name}, nil
}
