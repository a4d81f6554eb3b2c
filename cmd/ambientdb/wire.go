package main

import (
	"context"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/auth"
	"github.com/centraunit/ambientdb/config"
	"github.com/centraunit/ambientdb/database"
	"github.com/centraunit/ambientdb/logger"
	"github.com/centraunit/ambientdb/password"
)

// register binds every capability the commands resolve.
func register(ctx context.Context, r *ambientdb.Registry, cfg config.Config, log *logger.Logger) error {
	r.SetLogger(log.With("component", "registry"))

	if err := ambientdb.RegisterIn[database.Database](r, func() (database.Database, error) {
		return database.Open(ctx, cfg.Database, database.WithLogger(log.With("component", "database")))
	}); err != nil {
		return err
	}

	if err := ambientdb.RegisterIn[password.Hasher](r, func() (password.Hasher, error) {
		return password.New(cfg.Security.PasswordHasher)
	}); err != nil {
		return err
	}

	settings := auth.Settings{
		Algorithm: cfg.Security.JWTAlgorithm,
		SecretKey: cfg.Security.JWTSecretKey,
		ExpiresIn: cfg.Security.JWTExpiresIn,
	}
	if err := ambientdb.RegisterIn[*auth.LoginService](r, func() (*auth.LoginService, error) {
		return auth.NewLoginService(settings, log.With("component", "auth"))
	}); err != nil {
		return err
	}
	return ambientdb.RegisterIn[*auth.TokenAuthenticator](r, func() (*auth.TokenAuthenticator, error) {
		return auth.NewTokenAuthenticator(settings)
	}, ambientdb.ModeFactory)
}
