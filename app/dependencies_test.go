package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fludio/fludiobe/config"
	"github.com/fludio/fludiobe/internal/testutil"
	"github.com/fludio/fludiobe/repositories/postgres"
	"github.com/fludio/fludiobe/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDependencies(t *testing.T) {
	t.Run("successful initialization with all components", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		logger := zaptest.NewLogger(t)

		// Skip if database not available
		if !isDatabaseAvailable(t, cfg) {
			t.Skip("database not available")
		}

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		// Verify infrastructure
		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.DB)
		assert.NotNil(t, deps.Logger)

		// Verify repositories
		assert.NotNil(t, deps.Users)
		assert.NotNil(t, deps.SimStates)
		assert.NotNil(t, deps.Notes)
		assert.NotNil(t, deps.TxManager)

		// Verify services
		assert.NotNil(t, deps.Accounts)
		assert.NotNil(t, deps.SimStateService)
		assert.NotNil(t, deps.NoteService)
		assert.NotNil(t, deps.AuthMiddleware)

		err = deps.Close(ctx)
		assert.NoError(t, err)
	})

	t.Run("database connection failure", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.Database.Host = "invalid-host-that-does-not-exist"
		logger := zaptest.NewLogger(t)

		deps, err := NewDependencies(ctx, cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize database")
	})
}

func TestNewDependenciesWithRepositories(t *testing.T) {
	store := testutil.NewStore()
	core, logs := observer.New(zap.WarnLevel)

	cfg := testConfig(t)
	cfg.Auth.SigningKey = config.InsecureSigningKey

	deps := NewDependenciesWithRepositories(cfg, zap.New(core), store.Repositories(), store.TransactionManager())

	assert.Nil(t, deps.DB)
	assert.NotNil(t, deps.Accounts)
	assert.NotNil(t, deps.SimStateService)
	assert.NotNil(t, deps.NoteService)
	assert.NotNil(t, deps.PolicyMiddleware)
	assert.Equal(t, 1, logs.FilterMessageSnippet("insecure development key").Len())

	// Tokens issued by the wired service authenticate through the account service
	result, err := deps.Accounts.Register(context.Background(), services.RegisterInput{Username: "alice", Password: "s3cret!"})
	require.NoError(t, err)

	principal, err := deps.Accounts.Authenticate(context.Background(), result.Access)
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Username)

	assert.NoError(t, deps.Close(context.Background()))
}

func TestDependenciesClose(t *testing.T) {
	t.Run("graceful shutdown", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		logger := zaptest.NewLogger(t)

		// Skip if database not available
		if !isDatabaseAvailable(t, cfg) {
			t.Skip("database not available")
		}

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		err = deps.Close(ctx)
		assert.NoError(t, err)
	})
}

// Test helpers

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Database: config.DatabaseConfig{
			Host:            getEnvOrDefault("DB_HOST", "localhost"),
			Port:            5432,
			User:            getEnvOrDefault("DB_USER", "fludio"),
			Password:        getEnvOrDefault("DB_PASSWORD", "fludio"),
			Database:        getEnvOrDefault("DB_NAME", "fludio_test"),
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Auth: config.AuthConfig{
			SigningKey:      "test-signing-key",
			Issuer:          "fludiobe",
			AccessTokenTTL:  5 * time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "debug",
			LogFormat: "json",
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func isDatabaseAvailable(t *testing.T, cfg *config.Config) bool {
	t.Helper()
	factory, err := postgres.NewRepositoryFactory(cfg, zap.NewNop())
	if err != nil {
		return false
	}
	defer factory.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return factory.GetDB().PingContext(ctx) == nil
}
