// Command ambientdb manages staff users against the configured database.
//
// Configuration comes from the environment (DB_*, SECURITY_*, LOG_*, APP_*).
//
//	ambientdb migrate
//	ambientdb create-user -username ada -password secret -email ada@example.com
//	ambientdb login -username ada -password secret -scope me
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"

	"github.com/centraunit/ambientdb"
	"github.com/centraunit/ambientdb/auth"
	"github.com/centraunit/ambientdb/config"
	"github.com/centraunit/ambientdb/database"
	"github.com/centraunit/ambientdb/logger"
	"github.com/centraunit/ambientdb/staff"
)

const usage = `usage: ambientdb <command> [flags]

commands:
  migrate        create the staff tables
  reset          drop and recreate the staff tables, deleting every user
  create-user    create a user
  create-random  create a user with generated identity
  list           list users
  get            show one user (-id)
  count          count users
  report         count and list users in one unit of work
  delete         delete one user (-id)
  login          exchange credentials for an access token
  whoami         resolve an access token to its user (-token)
`

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		exitf("Error: %v", err)
	}
	log, err := logger.New(cfg.Application.Mode,
		logger.WithLevel(cfg.Log.Level),
		logger.WithRedaction(cfg.Log.Redaction),
		logger.WithHashSalt(cfg.Log.HashSalt))
	if err != nil {
		exitf("Error: build logger: %v", err)
	}
	defer log.Sync()

	registry := ambientdb.Default()
	if err := register(ctx, registry, cfg, log); err != nil {
		log.Fatal("register capabilities", "error", err)
	}
	if err := registry.Boot(ctx); err != nil {
		log.Fatal("boot registry", "error", err)
	}
	defer func() {
		if err := registry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Error("shutdown registry", "error", err)
		}
	}()

	if err := run(ctx, os.Stdout, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error("command failed", "command", os.Args[1], "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = registry.Shutdown(context.WithoutCancel(ctx))
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)

	switch command {
	case "migrate":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return staff.CreateSchema(ctx)

	case "reset":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return staff.RecreateSchema(ctx)

	case "create-user":
		var in staff.NewUser
		var balance float64
		fs.StringVar(&in.Username, "username", "", "unique username (required)")
		fs.StringVar(&in.Password, "password", "", "plain text password")
		fs.StringVar(&in.Email, "email", "", "unique email address")
		fs.StringVar(&in.FirstName, "first-name", "", "first name")
		fs.StringVar(&in.LastName, "last-name", "", "last name")
		fs.StringVar(&in.PhoneNumber, "phone", "", "phone number")
		fs.Float64Var(&balance, "balance", 0, "starting balance")
		if err := fs.Parse(args); err != nil {
			return err
		}
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "balance" {
				in.Balance = &balance
			}
		})
		user, err := staff.CreateUser(ctx, in)
		if database.IsConflict(err) {
			return fmt.Errorf("user with this username or email already exists: %w", err)
		}
		if err != nil {
			return err
		}
		return writeJSON(out, user)

	case "create-random":
		if err := fs.Parse(args); err != nil {
			return err
		}
		user, err := staff.CreateRandomUser(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, user)

	case "list":
		if err := fs.Parse(args); err != nil {
			return err
		}
		users, err := staff.GetUsers(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, users)

	case "get":
		id := fs.Int64("id", 0, "user id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		user, err := staff.GetUserByID(ctx, *id)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %d does not exist", *id)
		}
		return writeJSON(out, user)

	case "count":
		if err := fs.Parse(args); err != nil {
			return err
		}
		n, err := staff.UsersCount(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]int64{"count": n})

	case "report":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return report(ctx, out)

	case "delete":
		id := fs.Int64("id", 0, "user id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		deleted, err := staff.DeleteUser(ctx, *id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("there is no user with id=%d", *id)
		}
		return writeJSON(out, map[string]string{"message": fmt.Sprintf("user %d deleted", *id)})

	case "login":
		username := fs.String("username", "", "username")
		secret := fs.String("password", "", "password")
		var scopes stringList
		fs.Var(&scopes, "scope", "scope to request, repeatable")
		if err := fs.Parse(args); err != nil {
			return err
		}
		login, err := ambientdb.Resolve[*auth.LoginService]()
		if err != nil {
			return err
		}
		token, err := login.Authenticate(ctx, *username, *secret, scopes...)
		if err != nil {
			return err
		}
		return writeJSON(out, token)

	case "whoami":
		token := fs.String("token", "", "access token")
		var scopes stringList
		fs.Var(&scopes, "scope", "scope the token must carry, repeatable")
		if err := fs.Parse(args); err != nil {
			return err
		}
		verifier, err := ambientdb.Resolve[*auth.TokenAuthenticator]()
		if err != nil {
			return err
		}
		user, err := verifier.Verify(ctx, *token, scopes...)
		if err != nil {
			return err
		}
		return writeJSON(out, user)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

// report reads the count and the list from one snapshot.
func report(ctx context.Context, out io.Writer) error {
	db, err := ambientdb.Resolve[database.Database]()
	if err != nil {
		return err
	}

	var result struct {
		Count int64        `json:"count"`
		Users []staff.User `json:"users"`
	}
	err = db.Scoped(ctx, func(ctx context.Context, _ *database.Session) error {
		var err error
		if result.Count, err = staff.UsersCount(ctx); err != nil {
			return err
		}
		result.Users, err = staff.GetUsers(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

type stringList []string

func (s *stringList) String() string {
	return fmt.Sprint(*s)
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
