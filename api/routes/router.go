package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/tableside-backend/api/controllers"
	"github.com/angelmondragon/tableside-backend/api/middleware"
	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/catalog"
	"github.com/angelmondragon/tableside-backend/internal/modifiers"
	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/internal/realtime"
	"github.com/angelmondragon/tableside-backend/internal/tables"
	"github.com/angelmondragon/tableside-backend/pkg/auth/session"
	"github.com/angelmondragon/tableside-backend/pkg/config"
	"github.com/angelmondragon/tableside-backend/pkg/db"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/redis"
)

type redisDeps interface {
	Ping(ctx context.Context) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Services groups everything the router hands to controllers.
type Services struct {
	Auth      controllers.AuthService
	Sessions  session.AccessSessionChecker
	Catalog   catalog.Service
	Modifiers modifiers.Service
	Cart      cart.Service
	Orders    orders.Service
	Tables    tables.Service
	Hub       *realtime.Hub
	// Metrics serves /metrics; nil leaves the route unmounted.
	Metrics http.Handler
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicOrigin),
	)

	signInPolicy := middleware.NewAuthRateLimitPolicy(
		"sign-in",
		cfg.AuthRateLimit.SignInWindow,
		cfg.AuthRateLimit.SignInIPLimit,
		cfg.AuthRateLimit.SignInEmailLimit,
	)
	signUpPolicy := middleware.NewAuthRateLimitPolicy(
		"sign-up",
		cfg.AuthRateLimit.SignUpWindow,
		cfg.AuthRateLimit.SignUpIPLimit,
		cfg.AuthRateLimit.SignUpEmailLimit,
	)

	// nil interface when redis is not wired; a typed nil pointer would be called.
	var rdb redisDeps
	if redisClient != nil {
		rdb = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, rdb))
	})
	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(signUpPolicy, rdb, logg)).Post("/sign-up", controllers.AuthSignUp(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(signInPolicy, rdb, logg)).Post("/sign-in", controllers.AuthSignIn(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, svc.Sessions, logg))
				r.Post("/sign-out", controllers.AuthSignOut(svc.Auth, logg))
				r.Get("/session", controllers.AuthSession(svc.Auth, logg))
			})
		})

		r.Route("/customer/{organizationId}/tables/{tableNumber}", func(r chi.Router) {
			r.Get("/menu", controllers.CustomerMenu(svc.Catalog, logg))
			r.Get("/menu-items/{id}/modifier-groups", controllers.MenuItemModifierGroups(svc.Modifiers, controllers.CustomerScope, logg))
			mountCart(r, svc, controllers.CustomerScope, logg)
			r.Post("/order", controllers.OrderSubmit(svc.Orders, controllers.CustomerScope, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, svc.Sessions, logg))

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", controllers.CategoriesList(svc.Catalog, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCatalogManager(logg))
					r.Post("/", controllers.CategoryCreate(svc.Catalog, logg))
					r.Patch("/{id}", controllers.CategoryRename(svc.Catalog, logg))
					r.Delete("/{id}", controllers.CategoryDelete(svc.Catalog, logg))
				})
			})

			r.Route("/modifier-groups", func(r chi.Router) {
				r.Get("/", controllers.ModifierGroupsList(svc.Catalog, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCatalogManager(logg))
					r.Post("/", controllers.ModifierGroupCreate(svc.Catalog, logg))
					r.Patch("/{id}", controllers.ModifierGroupUpdate(svc.Catalog, logg))
					r.Delete("/{id}", controllers.ModifierGroupDelete(svc.Catalog, logg))
					r.Post("/{id}/modifiers", controllers.ModifierCreate(svc.Catalog, logg))
				})
			})

			r.Route("/modifiers", func(r chi.Router) {
				r.Use(middleware.RequireCatalogManager(logg))
				r.Patch("/{id}", controllers.ModifierUpdate(svc.Catalog, logg))
				r.Delete("/{id}", controllers.ModifierDelete(svc.Catalog, logg))
			})

			r.Route("/menu-items", func(r chi.Router) {
				r.Get("/", controllers.MenuItemsList(svc.Catalog, logg))
				r.Get("/{id}/modifier-groups", controllers.MenuItemModifierGroups(svc.Modifiers, controllers.StaffOrganization, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCatalogManager(logg))
					r.Post("/", controllers.MenuItemCreate(svc.Catalog, logg))
					r.Patch("/{id}", controllers.MenuItemUpdate(svc.Catalog, logg))
					r.Delete("/{id}", controllers.MenuItemDelete(svc.Catalog, logg))
				})
			})

			r.Route("/tables", func(r chi.Router) {
				r.Get("/", controllers.TablesList(svc.Tables, logg))
				r.With(middleware.RequireCatalogManager(logg)).Post("/", controllers.TableCreate(svc.Tables, logg))
				r.Get("/projection", controllers.TablesProjection(svc.Tables, logg))
				r.Get("/ws", controllers.TablesFeed(svc.Hub, logg))
				r.Route("/{tableNumber}", func(r chi.Router) {
					r.Get("/qr", controllers.TableQRCode(svc.Tables, logg))
					mountCart(r, svc, controllers.StaffScope, logg)
					r.Post("/order", controllers.OrderSubmit(svc.Orders, controllers.StaffScope, logg))
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/active", controllers.OrdersActive(svc.Orders, logg))
				r.Post("/{id}/close", controllers.OrderClose(svc.Orders, logg))
				r.Post("/{id}/reopen", controllers.OrderReopen(svc.Orders, logg))
				r.Patch("/{id}/status", controllers.OrderUpdateStatus(svc.Orders, logg))
			})
		})
	})

	return r
}

func mountCart(r chi.Router, svc Services, scope controllers.ScopeResolver, logg *logger.Logger) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", controllers.CartGet(svc.Cart, scope, logg))
		r.Delete("/", controllers.CartClear(svc.Cart, scope, logg))
		r.Post("/lines", controllers.CartAddLine(svc.Cart, svc.Modifiers, scope, logg))
		r.Post("/lines/{lineId}/increment", controllers.CartIncrement(svc.Cart, scope, logg))
		r.Post("/lines/{lineId}/decrement", controllers.CartDecrement(svc.Cart, scope, logg))
		r.Delete("/lines/{lineId}", controllers.CartRemoveLine(svc.Cart, scope, logg))
	})
}
