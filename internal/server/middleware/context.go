package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/lattice-hq/orgtree/backend/pkg/cache"
	"github.com/lattice-hq/orgtree/backend/pkg/hierarchy"
)

type AppUser struct {
	UserID       int64
	Role         string
	Capabilities []string
}

// App bundles the shared clients and the engine services handlers work with.
// It is built once at startup; the request middleware only attaches it.
type App struct {
	DBConn         *pgxpool.Pool
	Queue          *amqp091.Channel
	Key            *keyfunc.Keyfunc
	S3             *s3.Client
	Cache          cache.Client
	Access         *hierarchy.AccessService
	Mutations      *hierarchy.Coordinator
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
