// Package auth issues and verifies access tokens for staff users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/database"
	"github.com/centraunit/ambientdb/password"
	"github.com/centraunit/ambientdb/staff"
)

var (
	// ErrUnauthorized is returned for every credential or token that is not accepted.
	ErrUnauthorized = errors.New("incorrect username or password")
	// ErrEmptySecret is returned by constructors given no signing secret.
	ErrEmptySecret = errors.New("empty jwt secret key")
)

// Settings configures token signing.
type Settings struct {
	Algorithm string
	SecretKey string
	ExpiresIn time.Duration
}

// Claims is the access token payload.
type Claims struct {
	Username string   `json:"username"`
	Scopes   []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// Token is a signed access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func signingMethod(name string) (jwt.SigningMethod, error) {
	switch name {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", name)
	}
}

func (s Settings) signer() (jwt.SigningMethod, []byte, error) {
	method, err := signingMethod(s.Algorithm)
	if err != nil {
		return nil, nil, err
	}
	if s.SecretKey == "" {
		return nil, nil, ErrEmptySecret
	}
	return method, []byte(s.SecretKey), nil
}

// LoginService exchanges credentials for access tokens.
type LoginService struct {
	method jwt.SigningMethod
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    database.Logger
}

// NewLoginService validates settings. A nil logger discards messages.
func NewLoginService(settings Settings, log database.Logger) (*LoginService, error) {
	method, secret, err := settings.signer()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = nopLogger{}
	}
	return &LoginService{
		method: method,
		secret: secret,
		ttl:    settings.ExpiresIn,
		now:    time.Now,
		log:    log,
	}, nil
}

// Authenticate checks username and password and returns a signed token carrying
// scopes. A hash produced with outdated parameters is replaced in the same unit of work.
func (l *LoginService) Authenticate(ctx context.Context, username, secret string, scopes ...string) (*Token, error) {
	hasher, err := ambientdb.Resolve[password.Hasher]()
	if err != nil {
		return nil, err
	}
	db, err := ambientdb.Resolve[database.Database]()
	if err != nil {
		return nil, err
	}

	err = db.Scoped(ctx, func(ctx context.Context, _ *database.Session) error {
		user, err := staff.GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUnauthorized
		}

		if err := hasher.Verify(user.PasswordHash, secret); err != nil {
			if errors.Is(err, password.ErrMismatch) || errors.Is(err, password.ErrMalformedHash) {
				return ErrUnauthorized
			}
			return err
		}

		if hasher.NeedsRehash(user.PasswordHash) {
			hash, err := hasher.Hash(secret)
			if err != nil {
				return err
			}
			if err := staff.UpdatePasswordHash(ctx, hash, user.ID); err != nil {
				return err
			}
			l.log.Info("password rehashed", "user_id", user.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			l.log.Warn("login rejected", "username", username)
		}
		return nil, err
	}

	return l.issue(username, scopes)
}

func (l *LoginService) issue(username string, scopes []string) (*Token, error) {
	now := l.now()
	expires := now.Add(l.ttl)
	claims := Claims{
		Username: username,
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(l.method, claims).SignedString(l.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expires}, nil
}

// TokenAuthenticator resolves bearer tokens to users.
type TokenAuthenticator struct {
	method jwt.SigningMethod
	secret []byte
}

// NewTokenAuthenticator validates settings the same way NewLoginService does.
func NewTokenAuthenticator(settings Settings) (*TokenAuthenticator, error) {
	method, secret, err := settings.signer()
	if err != nil {
		return nil, err
	}
	return &TokenAuthenticator{method: method, secret: secret}, nil
}

// Verify returns the user a valid token was issued to. The token must carry every
// required scope.
func (a *TokenAuthenticator) Verify(ctx context.Context, token string, required ...string) (*staff.User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{a.method.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, errors.Join(ErrUnauthorized, err)
	}

	for _, scope := range required {
		if !slices.Contains(claims.Scopes, scope) {
			return nil, fmt.Errorf("%w: missing scope %q", ErrUnauthorized, scope)
		}
	}

	user, err := staff.GetUserByUsername(ctx, claims.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user does not exist", ErrUnauthorized)
	}
	return user, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
