package container

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	gormRepo "github.com/newmanyatta/manyatta/internal/infrastructure/persistence/gorm"
)

func TestModule_GraphIsComplete(t *testing.T) {
	err := fx.ValidateApp(
		fx.NopLogger,
		fx.Supply(ConfigPath("")),
		Module,
	)
	assert.NoError(t, err)
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", nil, "", "api.newmanyatta.co.ke", true},
		{"same origin", nil, "https://api.newmanyatta.co.ke", "api.newmanyatta.co.ke", true},
		{"cross origin rejected", nil, "https://evil.example", "api.newmanyatta.co.ke", false},
		{"configured origin", []string{"https://newmanyatta.co.ke/"}, "https://NewManyatta.co.ke", "api.newmanyatta.co.ke", true},
		{"wildcard", []string{"*"}, "https://evil.example", "api.newmanyatta.co.ke", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/galleries/session", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, CheckOrigin(tt.allowed)(req))
		})
	}
}

func TestNewCatalog_SQLiteSeeds(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		App:      config.AppConfig{LogLevel: "error"},
		Database: config.DatabaseConfig{Driver: "sqlite", Database: ":memory:", Seed: true},
	}
	log := zap.NewNop()

	// Act
	catalog, err := NewCatalog(cfg, log)
	require.NoError(t, err)
	defer catalog.Close()

	repo := gormRepo.NewCatalogRepository(catalog.DB)
	require.NoError(t, SeedCatalog(cfg, repo, log))
	require.NoError(t, SeedCatalog(cfg, repo, log))

	// Assert
	count, err := repo.CountAlbums(context.Background())
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestSeedCatalog_Disabled(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", Database: ":memory:"},
	}
	catalog, err := NewCatalog(cfg, zap.NewNop())
	require.NoError(t, err)
	defer catalog.Close()

	repo := gormRepo.NewCatalogRepository(catalog.DB)
	require.NoError(t, SeedCatalog(cfg, repo, zap.NewNop()))

	count, err := repo.CountAlbums(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}
