// Command manage runs administrative tasks against the fludio database.
//
//	manage migrate
//	manage createsuperuser --username root --email root@example.com --password secret
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fludio/fludiobe/app"
	"github.com/fludio/fludiobe/config"
	"github.com/fludio/fludiobe/internal/observability"
	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/services"
	"github.com/spf13/pflag"
)

const usage = `usage: manage <command> [flags]

commands:
  migrate            apply pending database migrations
  createsuperuser    create an account with superuser rights
`

// errUsage marks argument errors that should print the usage text
var errUsage = errors.New("invalid usage")

// manager is the set of administrative operations the CLI drives
type manager interface {
	Migrate(ctx context.Context) error
	CreateSuperuser(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Migrations are an explicit command here
	cfg.Database.AutoMigrate = false

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	return dispatch(ctx, args, stdout, depsManager{deps})
}

// dispatch parses the subcommand and its flags and runs it against m
func dispatch(ctx context.Context, args []string, stdout io.Writer, m manager) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	switch args[0] {
	case "migrate":
		if len(args) > 1 {
			return fmt.Errorf("%w: migrate takes no arguments", errUsage)
		}
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(stdout, "migrations applied")
		return nil

	case "createsuperuser":
		return createSuperuser(ctx, args[1:], stdout, m)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func createSuperuser(ctx context.Context, args []string, stdout io.Writer, m manager) error {
	var in services.RegisterInput

	flagSet := pflag.NewFlagSet("createsuperuser", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&in.Username, "username", "", "login name of the new superuser")
	flagSet.StringVar(&in.Email, "email", "", "optional email address")
	flagSet.StringVar(&in.Password, "password", "", "password, at least 6 characters")

	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, rest[0])
	}
	if in.Username == "" || in.Password == "" {
		return fmt.Errorf("%w: --username and --password are required", errUsage)
	}

	user, err := m.CreateSuperuser(ctx, in)
	if err != nil {
		if fields, ok := services.GetErrorDetails(err)["fields"].(map[string]string); ok {
			for field, msg := range fields {
				fmt.Fprintf(stdout, "%s: %s\n", field, msg)
			}
		}
		return fmt.Errorf("failed to create superuser: %w", err)
	}

	fmt.Fprintf(stdout, "superuser %q created (id %d)\n", user.Username, user.ID)
	return nil
}

type depsManager struct {
	deps *app.Dependencies
}

func (d depsManager) Migrate(ctx context.Context) error {
	return d.deps.DB.RunMigrations(ctx)
}

func (d depsManager) CreateSuperuser(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	return d.deps.Accounts.CreateSuperuser(ctx, in)
}
