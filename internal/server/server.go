package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lattice-hq/orgtree/backend/internal/db"
	"github.com/lattice-hq/orgtree/backend/internal/queue"
	mid "github.com/lattice-hq/orgtree/backend/internal/server/middleware"
	"github.com/lattice-hq/orgtree/backend/internal/storage"
	"github.com/lattice-hq/orgtree/backend/internal/util"
	"github.com/lattice-hq/orgtree/backend/pkg/cache"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"
	"github.com/lattice-hq/orgtree/backend/pkg/logger"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func runMigrations(databaseURL string) {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		logger.Fatal("Failed to init migrations", "err", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to run migrations", "err", err)
	}
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	jwksUrl := util.GetEnv("AUTH_URL") + "/jwks"
	k, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	runMigrations(databaseURL)

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.Setup(ch); err != nil {
		logger.Fatal("Failed to declare invalidation exchange", "err", err)
	}

	s3 := storage.NewS3Client(ctx)

	cacheTTL := time.Duration(util.GetEnvNumeric("CACHE_TTL_SECONDS", 3600)) * time.Second
	cacheClient := cache.NewMemory(cache.MemoryParams{TTL: cacheTTL})
	defer cacheClient.Stop()

	// Each replica drops cache entries broadcast by any replica's writes.
	go func() {
		if err := queue.ConsumeInvalidations(ctx, que, cacheClient); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Invalidation consumer stopped", "err", err)
		}
	}()

	queries := db.New(conn)
	resolver := hierarchy.NewResolver(hierarchy.ResolverParams{
		Structures: queries,
	})
	access := hierarchy.NewAccessService(hierarchy.AccessServiceParams{
		Users:    queries,
		Grants:   queries,
		Resolver: resolver,
		Cache:    cacheClient,
		TTL:      cacheTTL,
	})
	mutations := hierarchy.NewCoordinator(hierarchy.CoordinatorParams{
		Store:     queries,
		Resolver:  resolver,
		Cache:     cacheClient,
		Locker:    db.NewLeaseLocker(conn),
		Publisher: queue.NewPublisher(ch),
	})

	masterAPIKey := util.GetEnv("MASTER_API_KEY")
	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)
	masterUserRole := util.GetEnv("MASTER_USER_ROLE")

	app := &mid.App{
		DBConn:         conn,
		Queue:          ch,
		Key:            &k,
		S3:             s3,
		Cache:          cacheClient,
		Access:         access,
		Mutations:      mutations,
		MasterAPIKey:   masterAPIKey,
		MasterUserID:   masterUserID,
		MasterUserRole: masterUserRole,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
