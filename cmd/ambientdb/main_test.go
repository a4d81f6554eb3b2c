package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/auth"
	"github.com/centraunit/ambientdb/config"
	"github.com/centraunit/ambientdb/database"
	"github.com/centraunit/ambientdb/logger"
	"github.com/centraunit/ambientdb/mock"
	"github.com/centraunit/ambientdb/staff"
)

func boot(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	ambientdb.Reset()

	cfg, err := config.LoadFrom(map[string]string{
		"DB_DRIVER":                "sqlite",
		"DB_CONNECTION_URI":        mock.SQLiteSettings(t).URI,
		"DB_MAX_CONNS":             "1",
		"SECURITY_PASSWORD_HASHER": "bcrypt",
		"SECURITY_JWT_SECRET_KEY":  "test-secret",
	})
	require.NoError(t, err)

	require.NoError(t, register(ctx, ambientdb.Default(), cfg, logger.Nop()))
	require.NoError(t, ambientdb.Boot(ctx))
	t.Cleanup(func() {
		assert.NoError(t, ambientdb.Shutdown(ctx))
		ambientdb.Reset()
	})
	return ctx
}

func runJSON(t *testing.T, ctx context.Context, out any, command string, args ...string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, run(ctx, &buf, command, args))
	if out != nil {
		require.NoError(t, json.Unmarshal(buf.Bytes(), out))
	}
}

func TestCommands(t *testing.T) {
	ctx := boot(t)

	runJSON(t, ctx, nil, "migrate")

	var created staff.User
	runJSON(t, ctx, &created, "create-user", "-username", "ada", "-password", "secret", "-email", "ada@example.com", "-balance", "5")
	assert.Equal(t, "ada", created.Username)
	assert.Equal(t, 5.0, created.Balance)
	assert.Empty(t, created.PasswordHash, "hash is never printed")

	var random staff.User
	runJSON(t, ctx, &random, "create-random")

	var counted map[string]int64
	runJSON(t, ctx, &counted, "count")
	assert.Equal(t, int64(2), counted["count"])

	var listed []staff.User
	runJSON(t, ctx, &listed, "list")
	require.Len(t, listed, 2)
	assert.Equal(t, created.ID, listed[0].ID)

	var rep struct {
		Count int64        `json:"count"`
		Users []staff.User `json:"users"`
	}
	runJSON(t, ctx, &rep, "report")
	assert.Equal(t, int64(2), rep.Count)
	assert.Len(t, rep.Users, 2)

	var token auth.Token
	runJSON(t, ctx, &token, "login", "-username", "ada", "-password", "secret", "-scope", "me")
	assert.NotEmpty(t, token.AccessToken)

	var me staff.User
	runJSON(t, ctx, &me, "whoami", "-token", token.AccessToken, "-scope", "me")
	assert.Equal(t, created.ID, me.ID)

	var got staff.User
	runJSON(t, ctx, &got, "get", "-id", fmt.Sprint(random.ID))
	assert.Equal(t, random.Username, got.Username)

	runJSON(t, ctx, nil, "delete", "-id", fmt.Sprint(random.ID))
	assert.Error(t, run(ctx, &bytes.Buffer{}, "get", []string{"-id", fmt.Sprint(random.ID)}))
	assert.Error(t, run(ctx, &bytes.Buffer{}, "delete", []string{"-id", fmt.Sprint(random.ID)}))

	runJSON(t, ctx, nil, "reset")
	runJSON(t, ctx, &counted, "count")
	assert.Equal(t, int64(0), counted["count"])
}

func TestCommandErrors(t *testing.T) {
	ctx := boot(t)
	runJSON(t, ctx, nil, "migrate")
	runJSON(t, ctx, nil, "create-user", "-username", "ada", "-password", "secret")

	err := run(ctx, &bytes.Buffer{}, "create-user", []string{"-username", "ada", "-password", "other"})
	require.Error(t, err)
	assert.True(t, database.IsConflict(err))

	err = run(ctx, &bytes.Buffer{}, "login", []string{"-username", "ada", "-password", "wrong"})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	assert.Error(t, run(ctx, &bytes.Buffer{}, "frobnicate", nil))
}
