package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	apprealm "github.com/qbdsync/backend/internal/application/realm"
	"github.com/qbdsync/backend/internal/infrastructure/auth"
	"github.com/qbdsync/backend/internal/infrastructure/config"
	"github.com/qbdsync/backend/internal/infrastructure/logger"
	"github.com/qbdsync/backend/internal/infrastructure/migration"
	"github.com/qbdsync/backend/internal/infrastructure/persistence"
	"github.com/qbdsync/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Directory new migrations are written to")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"})
	defer func() {
		_ = log.Sync()
	}()

	// create and list work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created successfully",
			zap.Uint64("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		files, err := migration.ListMigrations(migrations.FS)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(files) == 0 {
			log.Info("No migrations found")
			return
		}
		log.Info("Embedded migrations", zap.Int("count", len(files)))
		for _, m := range files {
			fmt.Printf("  - %06d %s\n", m.Version, m.Name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	switch command {
	case "create-realm", "set-password", "issue-token":
		if err := runRealmCommand(cfg, log, command, args[1:]); err != nil {
			log.Fatal("Command failed", zap.String("command", command), zap.Error(err))
		}
		return
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrations.FS, ".", log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "goto":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		if err := m.GoTo(uint(version)); err != nil {
			log.Fatal("Migration goto failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		log.Warn("Forcing migration version - use with caution!")
		if err := m.Force(version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	case "drop":
		confirm := false
		for _, arg := range args[1:] {
			if arg == "-confirm" || arg == "--confirm" {
				confirm = true
				break
			}
		}
		if !confirm {
			log.Fatal("Drop cancelled. Use 'migrate drop -confirm' to confirm.")
		}
		if err := m.Drop(); err != nil {
			log.Fatal("Drop failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

// runRealmCommand onboards realms and mints API tokens for them
func runRealmCommand(cfg *config.Config, log *zap.Logger, command string, args []string) error {
	ctx := context.Background()

	db, err := persistence.NewDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	repos := persistence.NewGormRepositories(db.DB)
	registry := apprealm.NewRegistryService(repos.Realms(), auth.NewPasswordHasher(cfg.Password.BcryptCost), log)

	switch command {
	case "create-realm":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate create-realm <schema_name> <name> [password]")
		}
		input := apprealm.CreateRealmInput{SchemaName: args[0], Name: args[1]}
		if len(args) > 2 {
			input.Password = args[2]
		}
		r, err := registry.Create(ctx, input)
		if err != nil {
			return err
		}
		fmt.Printf("realm %s created with id %s\n", r.SchemaName, r.ID)

	case "set-password":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate set-password <realm> <password>")
		}
		r, err := registry.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		if err := registry.SetCredential(ctx, r, args[1]); err != nil {
			return err
		}
		fmt.Printf("password updated for realm %s\n", r.SchemaName)

	case "issue-token":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate issue-token <realm> <subject>")
		}
		r, err := registry.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		token, err := auth.NewJWTService(cfg.JWT).Issue(r.ID, args[1])
		if err != nil {
			return err
		}
		fmt.Println(token.AccessToken)
		fmt.Fprintf(os.Stderr, "expires at %s\n", token.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func printUsage() {
	fmt.Println(`QuickBooks sync database tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                                   Apply all pending migrations
  down                                 Roll back all migrations
  step <n>                             Apply n migrations (positive=up, negative=down)
  goto <version>                       Migrate to a specific version
  version                              Show current migration version
  force <version>                      Force set migration version (use with caution)
  drop -confirm                        Drop all database objects (DANGEROUS)
  create <name> [desc]                 Create a new migration file pair
  list                                 List embedded migrations
  create-realm <schema> <name> [pw]    Onboard a realm
  set-password <realm> <password>      Replace a realm's Web Connector password
  issue-token <realm> <subject>        Print a bearer token for the task API

Flags:
  -path string          Directory new migrations are written to (default: ./migrations)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  QBD_DATABASE_HOST, QBD_DATABASE_PORT, QBD_DATABASE_USER,
  QBD_DATABASE_PASSWORD, QBD_DATABASE_DBNAME, QBD_DATABASE_SSLMODE, QBD_JWT_SECRET

Examples:
  # Apply all pending migrations
  migrate up

  # Onboard a realm and hand its id to the QuickBooks user
  migrate create-realm acme "Acme Corp" s3cret

  # Mint a token for the host application
  migrate issue-token acme billing-service`)
}
