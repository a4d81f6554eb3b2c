package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/auth"
	"github.com/centraunit/ambientdb/database"
	"github.com/centraunit/ambientdb/mock"
	"github.com/centraunit/ambientdb/password"
	"github.com/centraunit/ambientdb/staff"
)

var settings = auth.Settings{Algorithm: "HS256", SecretKey: "test-secret", ExpiresIn: time.Minute}

func cheapArgon2() password.Argon2 {
	return password.Argon2{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}
}

type AuthTestSuite struct {
	suite.Suite
	db     *database.SessionFactory
	hasher password.Argon2
	login  *auth.LoginService
	verify *auth.TokenAuthenticator
}

func (s *AuthTestSuite) SetupTest() {
	ambientdb.Reset()
	s.db = mock.OpenSQLite(s.T())
	s.hasher = cheapArgon2()

	s.Require().NoError(ambientdb.Register[database.Database](func() (database.Database, error) { return s.db, nil }))
	s.Require().NoError(ambientdb.Register[password.Hasher](func() (password.Hasher, error) { return s.hasher, nil }))
	s.Require().NoError(staff.CreateSchema(context.Background()))

	var err error
	s.login, err = auth.NewLoginService(settings, nil)
	s.Require().NoError(err)
	s.verify, err = auth.NewTokenAuthenticator(settings)
	s.Require().NoError(err)

	_, err = staff.CreateUser(context.Background(), staff.NewUser{Username: "ada", Password: "secret"})
	s.Require().NoError(err)
}

func (s *AuthTestSuite) TestLoginIssuesVerifiableToken() {
	ctx := context.Background()

	token, err := s.login.Authenticate(ctx, "ada", "secret", "me")
	s.Require().NoError(err)
	s.Equal("bearer", token.TokenType)
	s.WithinDuration(time.Now().Add(time.Minute), token.ExpiresAt, 5*time.Second)

	user, err := s.verify.Verify(ctx, token.AccessToken, "me")
	s.Require().NoError(err)
	s.Equal("ada", user.Username)

	claims := &auth.Claims{}
	_, err = jwt.ParseWithClaims(token.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(settings.SecretKey), nil
	})
	s.Require().NoError(err)
	s.Equal("ada", claims.Subject)
	s.Equal([]string{"me"}, claims.Scopes)
}

func (s *AuthTestSuite) TestWrongPassword() {
	_, err := s.login.Authenticate(context.Background(), "ada", "guess")
	s.ErrorIs(err, auth.ErrUnauthorized)
}

func (s *AuthTestSuite) TestUnknownUser() {
	_, err := s.login.Authenticate(context.Background(), "nobody", "secret")
	s.ErrorIs(err, auth.ErrUnauthorized)
}

func (s *AuthTestSuite) TestOutdatedHashIsReplaced() {
	ctx := context.Background()
	stronger := cheapArgon2()
	stronger.Time = 2
	s.hasher = stronger
	ambientdb.Reset()
	s.Require().NoError(ambientdb.Register[database.Database](func() (database.Database, error) { return s.db, nil }))
	s.Require().NoError(ambientdb.Register[password.Hasher](func() (password.Hasher, error) { return s.hasher, nil }))

	before, err := staff.GetUserByUsername(ctx, "ada")
	s.Require().NoError(err)
	s.True(stronger.NeedsRehash(before.PasswordHash))

	_, err = s.login.Authenticate(ctx, "ada", "secret")
	s.Require().NoError(err)

	after, err := staff.GetUserByUsername(ctx, "ada")
	s.Require().NoError(err)
	s.NotEqual(before.PasswordHash, after.PasswordHash)
	s.False(stronger.NeedsRehash(after.PasswordHash))
	s.NoError(stronger.Verify(after.PasswordHash, "secret"))
}

func (s *AuthTestSuite) TestWrongPasswordNeverRehashes() {
	ctx := context.Background()
	stronger := cheapArgon2()
	stronger.Time = 2
	s.hasher = stronger
	ambientdb.Reset()
	s.Require().NoError(ambientdb.Register[database.Database](func() (database.Database, error) { return s.db, nil }))
	s.Require().NoError(ambientdb.Register[password.Hasher](func() (password.Hasher, error) { return s.hasher, nil }))

	before, err := staff.GetUserByUsername(ctx, "ada")
	s.Require().NoError(err)

	_, err = s.login.Authenticate(ctx, "ada", "guess")
	s.Require().ErrorIs(err, auth.ErrUnauthorized)

	after, err := staff.GetUserByUsername(ctx, "ada")
	s.Require().NoError(err)
	s.Equal(before.PasswordHash, after.PasswordHash)
}

func (s *AuthTestSuite) TestVerifyRejections() {
	ctx := context.Background()
	token, err := s.login.Authenticate(ctx, "ada", "secret")
	s.Require().NoError(err)

	_, err = s.verify.Verify(ctx, token.AccessToken, "admin")
	s.ErrorIs(err, auth.ErrUnauthorized, "missing scope")

	_, err = s.verify.Verify(ctx, "not.a.token")
	s.ErrorIs(err, auth.ErrUnauthorized, "garbage")

	other, err := auth.NewTokenAuthenticator(auth.Settings{SecretKey: "other"})
	s.Require().NoError(err)
	_, err = other.Verify(ctx, token.AccessToken)
	s.ErrorIs(err, auth.ErrUnauthorized, "wrong key")

	deleted, err := staff.GetUserByUsername(ctx, "ada")
	s.Require().NoError(err)
	_, err = staff.DeleteUser(ctx, deleted.ID)
	s.Require().NoError(err)
	_, err = s.verify.Verify(ctx, token.AccessToken)
	s.ErrorIs(err, auth.ErrUnauthorized, "deleted user")
}

func (s *AuthTestSuite) TestExpiredToken() {
	expired, err := auth.NewLoginService(auth.Settings{SecretKey: settings.SecretKey, ExpiresIn: -time.Minute}, nil)
	s.Require().NoError(err)

	token, err := expired.Authenticate(context.Background(), "ada", "secret")
	s.Require().NoError(err)

	_, err = s.verify.Verify(context.Background(), token.AccessToken)
	s.ErrorIs(err, auth.ErrUnauthorized)
}

func (s *AuthTestSuite) TestLoginRunsInOneUnitOfWork() {
	err := s.db.Scoped(context.Background(), func(ctx context.Context, _ *database.Session) error {
		_, err := s.login.Authenticate(ctx, "ada", "secret")
		return err
	})
	s.NoError(err)
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}

func TestSettingsValidation(t *testing.T) {
	constructors := map[string]func(auth.Settings) error{
		"login": func(s auth.Settings) error {
			_, err := auth.NewLoginService(s, nil)
			return err
		},
		"token": func(s auth.Settings) error {
			_, err := auth.NewTokenAuthenticator(s)
			return err
		},
	}

	for name, construct := range constructors {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, construct(auth.Settings{Algorithm: "RS256", SecretKey: "x"}))
			assert.ErrorIs(t, construct(auth.Settings{Algorithm: "HS256"}), auth.ErrEmptySecret)
			assert.NoError(t, construct(auth.Settings{Algorithm: "HS512", SecretKey: "x"}))
		})
	}
}
