package app

import (
	"context"
	"fmt"

	"github.com/fludio/fludiobe/auth"
	"github.com/fludio/fludiobe/config"
	"github.com/fludio/fludiobe/middleware"
	"github.com/fludio/fludiobe/repositories"
	"github.com/fludio/fludiobe/repositories/postgres"
	"github.com/fludio/fludiobe/services"
	"github.com/fludio/fludiobe/services/notes"
	"github.com/fludio/fludiobe/services/simstate"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users     repositories.UserRepository
	SimStates repositories.SimStateRepository
	Notes     repositories.NoteRepository
	TxManager repositories.TransactionManager

	// Services
	Tokens          *auth.TokenService
	Accounts        *services.AccountService
	SimStateService *simstate.Service
	NoteService     *notes.Service

	// Middleware
	AuthMiddleware   *middleware.AuthMiddleware
	PolicyMiddleware *middleware.PolicyMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize PostgreSQL
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repos := deps.RepoFactory.NewRepositories()
	deps.initRepositories(repos, deps.RepoFactory.GetTransactionManager())
	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// NewDependenciesWithRepositories wires services over caller-supplied
// repositories. No database is opened, so readiness reports not ready.
func NewDependenciesWithRepositories(cfg *config.Config, logger *zap.Logger, repos *repositories.Repositories, txMgr repositories.TransactionManager) *Dependencies {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	deps.initRepositories(repos, txMgr)
	deps.initServices(cfg)
	return deps
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.HealthCheck(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := d.DB.RunMigrations(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories stores the repository instances
func (d *Dependencies) initRepositories(repos *repositories.Repositories, txMgr repositories.TransactionManager) {
	d.Users = repos.Users
	d.SimStates = repos.SimStates
	d.Notes = repos.Notes
	d.TxManager = txMgr

	d.Logger.Info("repositories initialized")
}

// initServices builds the token service, domain services and middleware
func (d *Dependencies) initServices(cfg *config.Config) {
	if cfg.UsesInsecureSigningKey() {
		d.Logger.Warn("JWT_SIGNING_KEY is not set, using an insecure development key")
	}

	d.Tokens = auth.NewTokenService(auth.Config{
		SigningKey: []byte(cfg.Auth.SigningKey),
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		Rotate:     cfg.Auth.RotateRefreshTokens,
	})

	d.Accounts = services.NewAccountService(d.Users, d.Tokens, d.Logger)
	d.SimStateService = simstate.NewService(d.SimStates, d.TxManager, d.Logger)
	d.NoteService = notes.NewService(d.Notes, d.TxManager, d.Logger)

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Accounts, d.Logger)
	d.PolicyMiddleware = middleware.NewPolicyMiddleware(d.Logger)

	d.Logger.Info("services initialized",
		zap.Duration("access_token_ttl", cfg.Auth.AccessTokenTTL),
		zap.Bool("rotate_refresh_tokens", cfg.Auth.RotateRefreshTokens))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
