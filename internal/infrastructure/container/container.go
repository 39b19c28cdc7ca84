// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/newmanyatta/manyatta/internal/application/delivery"
	appgallery "github.com/newmanyatta/manyatta/internal/application/gallery"
	appvitals "github.com/newmanyatta/manyatta/internal/application/vitals"
	"github.com/newmanyatta/manyatta/internal/domain/gallery"
	"github.com/newmanyatta/manyatta/internal/domain/vitals"
	"github.com/newmanyatta/manyatta/internal/infrastructure/cache"
	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/internal/infrastructure/fetch"
	"github.com/newmanyatta/manyatta/internal/infrastructure/hotreload"
	"github.com/newmanyatta/manyatta/internal/infrastructure/http/apiserver"
	"github.com/newmanyatta/manyatta/internal/infrastructure/http/assets"
	"github.com/newmanyatta/manyatta/internal/infrastructure/http/handlers"
	"github.com/newmanyatta/manyatta/internal/infrastructure/http/middleware"
	"github.com/newmanyatta/manyatta/internal/infrastructure/monitoring"
	"github.com/newmanyatta/manyatta/internal/infrastructure/performance"
	gormRepo "github.com/newmanyatta/manyatta/internal/infrastructure/persistence/gorm"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/memory"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/postgres"
	redisRepo "github.com/newmanyatta/manyatta/internal/infrastructure/persistence/redis"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/seed"
	"github.com/newmanyatta/manyatta/internal/infrastructure/persistence/sqlite"
	"github.com/newmanyatta/manyatta/internal/infrastructure/security"
	"github.com/newmanyatta/manyatta/internal/ports/inbound"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	"github.com/newmanyatta/manyatta/pkg/healthcheck"
	"github.com/newmanyatta/manyatta/pkg/logger"
)

// ConfigPath is the configuration file handed to viper; empty searches the
// default locations
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	DatabaseModule,
	CacheModule,
	FetchModule,

	// Service modules
	PerformanceModule,
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration. File edits are logged; settings
// take effect on restart.
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Watch(string(path), func(cfg *config.Config, e fsnotify.Event) {
			zap.L().Info("Configuration file changed",
				zap.String("file", e.Name),
				zap.String("op", e.Op.String()),
				zap.String("log_level", cfg.App.LogLevel),
			)
		})
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		log, err := logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
			Service:     cfg.App.Name,
		})
		if err != nil {
			return nil, err
		}
		zap.ReplaceGlobals(log)
		return log, nil
	},
)

// MonitoringModule provides metrics, tracing and the health registry
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		return monitoring.NewTracingProvider(monitoring.TracingConfigFrom(cfg), log)
	},
	func(cfg *config.Config, log *zap.Logger) *healthcheck.HealthCheck {
		return healthcheck.New(cfg.App.Version, log)
	},
)

// Catalog is the catalog database and the hook that releases it
type Catalog struct {
	DB    *gorm.DB
	Close func() error
}

// DatabaseModule provides the catalog database and repository
var DatabaseModule = fx.Provide(
	NewCatalog,
	func(c *Catalog) *gorm.DB { return c.DB },
	gormRepo.NewCatalogRepository,
)

// NewCatalog opens SQLite or PostgreSQL according to database.driver.
// PostgreSQL schemas are migrated by golang-migrate, SQLite by AutoMigrate.
func NewCatalog(cfg *config.Config, log *zap.Logger) (*Catalog, error) {
	if cfg.Database.Driver == "postgres" {
		cm, err := postgres.NewConnectionManager(cfg, log)
		if err != nil {
			return nil, err
		}
		return &Catalog{DB: cm.GetDB(), Close: cm.Close}, nil
	}

	dbPath := cfg.Database.Database
	db, err := sqlite.SetupDatabase(dbPath, gormRepo.NewLogger(log.Named("sqlite"), cfg.App.LogLevel, 200*time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
	}
	log.Info("Connected to SQLite database",
		zap.String("path", dbPath),
		zap.Bool("in_memory", dbPath == "" || dbPath == ":memory:"),
	)

	return &Catalog{
		DB: db,
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}

// CacheModule provides the blob store. Redis is an optional shared tier.
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*cache.RedisClient, error) {
		if !cfg.Redis.Enabled {
			log.Info("Redis disabled, blobs stay process-local")
			return nil, nil
		}
		return cache.NewRedisClient(&cfg.Redis, log)
	},
	func(cfg *config.Config, client *cache.RedisClient, log *zap.Logger) outbound.BlobStore {
		local := memory.NewCacheRepository(cfg.Images.BlobCacheSize)
		var shared outbound.CacheRepository
		if client != nil {
			shared = redisRepo.NewCacheRepository(client, cfg.Redis.KeyPrefix, log)
		}
		return cache.NewBlobStore(local, shared, cfg.Images.BlobTTL, log)
	},
)

// FetchModule provides the origin chain: scheme routing, the origin
// breaker and a shared cache of downloaded originals
var FetchModule = fx.Provide(
	func(cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (*fetch.Router, error) {
		httpFetcher, err := fetch.NewHTTPFetcher(cfg.Assets.PublicURL, cfg.Images.FetchTimeout, cfg.Images.MaxSourceBytes, cfg.Images.AllowedHosts, metrics)
		if err != nil {
			return nil, err
		}
		var s3Fetcher outbound.ImageFetcher
		if cfg.Storage.Bucket != "" {
			f, err := fetch.NewS3Fetcher(cfg.Storage, cfg.Images.MaxSourceBytes, metrics)
			if err != nil {
				return nil, err
			}
			s3Fetcher = f
		} else {
			log.Debug("No storage bucket configured, s3:// sources fall back")
		}
		return fetch.NewRouter(httpFetcher, s3Fetcher), nil
	},
	func(log *zap.Logger) *healthcheck.CircuitBreaker {
		breakerConfig := healthcheck.DefaultCircuitBreakerConfig()
		breakerConfig.OnStateChange = func(name string, from, to healthcheck.CircuitBreakerState) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
		return healthcheck.NewCircuitBreaker("image-origin", breakerConfig)
	},
	func(router *fetch.Router, breaker *healthcheck.CircuitBreaker, cfg *config.Config) (*fetch.CachingFetcher, error) {
		return fetch.NewCachingFetcher(fetch.NewBreakerFetcher(router, breaker), cfg.Images.BlobCacheSize/8, cfg.Images.FetchTimeout)
	},
	func(f *fetch.CachingFetcher) outbound.ImageFetcher { return f },
	func(f *fetch.CachingFetcher) outbound.Preloader { return f },
)

// PerformanceModule provides the compression pipeline
var PerformanceModule = fx.Provide(
	func(cfg *config.Config, fetcher outbound.ImageFetcher, store outbound.BlobStore, metrics *monitoring.MetricsCollector, log *zap.Logger) *performance.Pipeline {
		return performance.NewPipeline(fetcher, store, performance.CompressionConfig{
			Quality:          cfg.Images.Quality,
			MaxWidth:         cfg.Images.MaxWidth,
			LazyMaxDimension: cfg.Images.LazyMaxDimension,
			PriorityMaxBytes: cfg.Images.PriorityMaxBytes,
			LazyMaxBytes:     cfg.Images.LazyMaxBytes,
			MaxPixels:        cfg.Images.MaxPixels(),
			Timeout:          cfg.Images.CompressTimeout,
		}, metrics, log)
	},
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(cfg *config.Config, pipeline *performance.Pipeline, store outbound.BlobStore, metrics *monitoring.MetricsCollector, log *zap.Logger) *delivery.Service {
		return delivery.NewService(pipeline, store, delivery.Options{
			RootMargin:        float64(cfg.Images.RootMargin),
			Widths:            cfg.Images.Widths,
			PlaceholderColor:  cfg.Images.PlaceholderColor,
			PlaceholderWidth:  cfg.Images.PlaceholderWidth,
			PlaceholderHeight: cfg.Images.PlaceholderHeight,
		}, metrics.HandleDeliveryEvent, log)
	},
	func(cfg *config.Config, repo outbound.CatalogRepository, preloader outbound.Preloader, metrics *monitoring.MetricsCollector, log *zap.Logger) *appgallery.Service {
		return appgallery.NewService(repo, preloader, appgallery.Options{
			PreloadDebounce:  cfg.Gallery.PreloadDebounce,
			AutoplayInterval: cfg.Gallery.AutoplayInterval,
			Swipe: gallery.SwipeConfig{
				ScrollSuppress: cfg.Gallery.ScrollSuppress,
				Distance:       cfg.Gallery.SwipeDistance,
				Velocity:       cfg.Gallery.SwipeVelocity,
			},
			Widths: cfg.Images.Widths,
		}, metrics, log)
	},
	// One monitor per process; report observers attach in RegisterVitalsObservers
	func(log *zap.Logger) *appvitals.Monitor {
		return appvitals.NewMonitor(vitals.DefaultThresholds(), log)
	},
	func(s *delivery.Service) inbound.ImageService { return s },
	func(s *appgallery.Service) inbound.GalleryService { return s },
	func(m *appvitals.Monitor) inbound.VitalsService { return m },
)

// HTTPModule provides the API server, its handlers and the asset origin
var HTTPModule = fx.Provide(
	security.NewValidationService,
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector) *middleware.Middleware {
		return middleware.New(cfg, log, metrics)
	},
	func(cfg *config.Config, service *delivery.Service, validation *security.ValidationService, log *zap.Logger) (*handlers.ImageHandlers, error) {
		return handlers.NewImageHandlers(service, service, validation, cfg.Assets.PublicURL, log)
	},
	func(cfg *config.Config, service inbound.GalleryService, log *zap.Logger) *handlers.GalleryHandlers {
		options := handlers.DefaultSessionOptions()
		options.CheckOrigin = CheckOrigin(cfg.Server.AllowedOrigins)
		return handlers.NewGalleryHandlers(service, options, log)
	},
	func(service inbound.VitalsService, validation *security.ValidationService, log *zap.Logger) *handlers.VitalsHandlers {
		return handlers.NewVitalsHandlers(service, validation, log)
	},
	func(
		cfg *config.Config,
		log *zap.Logger,
		mw *middleware.Middleware,
		images *handlers.ImageHandlers,
		galleries *handlers.GalleryHandlers,
		vitalsHandlers *handlers.VitalsHandlers,
		health *healthcheck.HealthCheck,
		metrics *monitoring.MetricsCollector,
		validation *security.ValidationService,
	) (*apiserver.Server, error) {
		return apiserver.NewServer(cfg, log, mw, apiserver.Routes{
			Images:     images,
			Galleries:  galleries,
			Vitals:     vitalsHandlers,
			Health:     health,
			Metrics:    metrics.Handler(),
			Validation: validation,
		})
	},
	func(cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (*assets.Server, error) {
		return assets.NewServer(assets.OptionsFromConfig(cfg), metrics, log)
	},
	func(log *zap.Logger) (*hotreload.FileWatcher, error) {
		return hotreload.NewFileWatcher(hotreload.DefaultDebounce, log)
	},
)

// LifecycleModule registers health checks, observers and lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterHealthChecks,
	RegisterVitalsObservers,
	SeedCatalog,
	RegisterAssetInvalidation,
	RegisterLifecycleHooks,
)

// CheckOrigin allows same-origin upgrades plus the configured origins.
// A "*" entry allows every origin.
func CheckOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSuffix(strings.ToLower(o), "/")] = struct{}{}
	}
	_, anyOrigin := set["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || anyOrigin {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// RegisterHealthChecks registers every dependency the service needs to be
// ready
func RegisterHealthChecks(
	cfg *config.Config,
	health *healthcheck.HealthCheck,
	db *gorm.DB,
	redisClient *cache.RedisClient,
	breaker *healthcheck.CircuitBreaker,
	log *zap.Logger,
) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	health.Register("database", healthcheck.NewDatabaseChecker(sqlDB))
	health.Register(breaker.Name(), breaker.Checker())

	if redisClient != nil {
		health.Register("redis", healthcheck.NewRedisChecker(redisClient))
	}
	if cfg.Assets.Enabled {
		health.Register("assets", healthcheck.NewDirectoryChecker(cfg.Assets.Root))
	}

	log.Debug("Health checks registered")
	return nil
}

// RegisterVitalsObservers attaches the metrics and log observers to the
// vitals monitor
func RegisterVitalsObservers(monitor *appvitals.Monitor, metrics *monitoring.MetricsCollector, log *zap.Logger) {
	monitor.Subscribe(metrics.ObserveVitals)
	monitor.Subscribe(appvitals.LogObserver(log))
}

// SeedCatalog loads the bundled properties and albums into an empty catalog
func SeedCatalog(cfg *config.Config, repo outbound.CatalogRepository, log *zap.Logger) error {
	if !cfg.Database.Seed {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return seed.Catalog(ctx, repo, log)
}

// RegisterAssetInvalidation drops rendered variants and cached downloads
// of an original whenever it changes on disk
func RegisterAssetInvalidation(watcher *hotreload.FileWatcher, origin *assets.Server, fetcher *fetch.CachingFetcher, log *zap.Logger) {
	watcher.OnChange(func(change hotreload.Change) {
		src, removed := origin.Invalidate(change.Path)
		if src == "" {
			return
		}
		fetcher.Invalidate(src)
		log.Info("Asset changed",
			zap.String("source", src),
			zap.Bool("removed", change.Removed()),
			zap.Int("variants_dropped", removed),
		)
	})
}

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	catalog *Catalog,
	redisClient *cache.RedisClient,
	api *apiserver.Server,
	origin *assets.Server,
	watcher *hotreload.FileWatcher,
	monitor *appvitals.Monitor,
	metrics *monitoring.MetricsCollector,
	tracing *monitoring.TracingProvider,
) {
	uptimeCtx, stopUptime := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting New Manyatta image service",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			go metrics.StartUptimeCounter(uptimeCtx)

			go func() {
				if err := api.Start(); err != nil {
					log.Fatal("Failed to start API server", zap.Error(err))
				}
			}()

			if cfg.Assets.Enabled {
				go func() {
					if err := origin.Start(); err != nil {
						log.Fatal("Failed to start asset origin", zap.Error(err))
					}
				}()

				if cfg.Assets.Watch {
					if err := watcher.AddTree(origin.Root()); err != nil {
						log.Warn("Asset watcher disabled", zap.String("root", origin.Root()), zap.Error(err))
					} else {
						watcher.Start()
					}
				}
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down New Manyatta image service")
			stopUptime()

			if err := api.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown API server", zap.Error(err))
			}
			if cfg.Assets.Enabled {
				if err := origin.Shutdown(ctx); err != nil {
					log.Error("Failed to shutdown asset origin", zap.Error(err))
				}
			}
			if err := watcher.Stop(); err != nil {
				log.Warn("Failed to stop asset watcher", zap.Error(err))
			}

			monitor.Close()

			if err := catalog.Close(); err != nil {
				log.Error("Failed to close database connection", zap.Error(err))
			}
			if redisClient != nil {
				if err := redisClient.Close(); err != nil {
					log.Error("Failed to close Redis client", zap.Error(err))
				}
			}
			if err := tracing.Shutdown(ctx); err != nil {
				log.Warn("Failed to flush traces", zap.Error(err))
			}

			// Flush logs
			_ = log.Sync()

			return nil
		},
	})
}
