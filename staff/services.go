package staff

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/password"
	"github.com/centraunit/ambientdb/query"
)

// ErrUsernameRequired is returned by CreateUser for an empty username.
var ErrUsernameRequired = errors.New("username is required")

// Users holds the operations over the users table.
var Users = query.NewTable[User](tableUsers)

// CreateUser hashes the password and stores the user.
// A duplicate username or email surfaces as the backend's error; see database.IsConflict.
func CreateUser(ctx context.Context, in NewUser) (*User, error) {
	if in.Username == "" {
		return nil, ErrUsernameRequired
	}
	hasher, err := ambientdb.Resolve[password.Hasher]()
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	record := goqu.Record{
		"first_name":    in.FirstName,
		"last_name":     in.LastName,
		"password_hash": hash,
		"username":      in.Username,
	}
	// Empty contact fields stay NULL so they never collide on the unique index.
	if in.Email != "" {
		record["email"] = in.Email
	}
	if in.PhoneNumber != "" {
		record["phone_number"] = in.PhoneNumber
	}
	if in.Balance != nil {
		record["balance"] = *in.Balance
	}
	return Users.Create.Execute(ctx, record)
}

// CreateRandomUser stores a user with unique generated identity and the password "password".
func CreateRandomUser(ctx context.Context) (*User, error) {
	suffix := uuid.NewString()
	return CreateUser(ctx, NewUser{
		FirstName:   "First name",
		LastName:    "Last name",
		PhoneNumber: "+1234567890",
		Email:       "test@test-" + suffix + ".com",
		Password:    "password",
		Username:    "username-" + suffix,
	})
}

// GetUsers returns the users matching every condition, ordered by id.
func GetUsers(ctx context.Context, where ...exp.Expression) ([]User, error) {
	return Users.SelectAll.Execute(ctx, query.Where(where...))
}

// GetUserByUsername returns nil when no user has username.
func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return Users.SelectOne.Execute(ctx, query.Where(goqu.C("username").Eq(username)))
}

// GetUserByID returns nil when no user has id.
func GetUserByID(ctx context.Context, id int64) (*User, error) {
	return Users.SelectOne.Execute(ctx, query.Where(goqu.C("id").Eq(id)))
}

// UpdatePasswordHash replaces the stored hash of user id.
func UpdatePasswordHash(ctx context.Context, hash string, id int64) error {
	_, err := Users.Update.Execute(ctx, query.Change{
		Set:   goqu.Record{"password_hash": hash},
		Where: query.Where(goqu.C("id").Eq(id)),
	})
	return err
}

// DeleteUser removes user id and reports whether it existed.
func DeleteUser(ctx context.Context, id int64) (bool, error) {
	deleted, err := Users.Delete.Execute(ctx, query.Where(goqu.C("id").Eq(id)))
	if err != nil {
		return false, err
	}
	return len(deleted) > 0, nil
}

// UsersCount returns the number of stored users.
func UsersCount(ctx context.Context) (int64, error) {
	return Users.Count.Execute(ctx, nil)
}

// UsernameTaken reports whether a user already has username.
func UsernameTaken(ctx context.Context, username string) (bool, error) {
	return Users.Exists.Execute(ctx, query.Where(goqu.C("username").Eq(username)))
}
