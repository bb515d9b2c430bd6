// Package api exposes the shared menu over HTTP and websocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shared-menu/internal/clipper"
	"shared-menu/internal/dish"
	"shared-menu/internal/events"
	"shared-menu/internal/logger"
	"shared-menu/internal/metrics"
	"shared-menu/internal/shopping"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ListSharer sends a shopping list somewhere outside the service.
// telegram.Notifier satisfies it.
type ListSharer interface {
	SendShoppingList(list *shopping.ShoppingList, dishes []dish.Dish) error
}

// Deps are the collaborators the handlers call into. Sharer and Font may be nil.
type Deps struct {
	Dishes         *dish.Repository
	Suggester      *dish.Suggester
	Clipper        *clipper.Clipper
	Shopping       *shopping.Service
	Subscriber     events.Subscriber
	Metrics        *metrics.Store
	Sharer         ListSharer
	Font           *shopping.Font
	DatabasePath   string
	AllowedOrigins []string
	RequestLogging bool
}

type Server struct {
	echo *echo.Echo
	deps Deps
}

func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	if deps.RequestLogging {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins(deps.AllowedOrigins),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{echo: e, deps: deps}
	s.routes()
	return s
}

func (s *Server) routes() {
	dishes := &dishHandler{dishes: s.deps.Dishes, suggester: s.deps.Suggester, clipper: s.deps.Clipper}
	lists := &shoppingHandler{dishes: s.deps.Dishes, service: s.deps.Shopping, sharer: s.deps.Sharer, font: s.deps.Font}
	sys := &systemHandler{metrics: s.deps.Metrics, databasePath: s.deps.DatabasePath}
	panels := &panelHandler{
		dishes:     s.deps.Dishes,
		service:    s.deps.Shopping,
		subscriber: s.deps.Subscriber,
		upgrader:   newUpgrader(s.deps.AllowedOrigins),
	}

	s.echo.GET("/health", sys.Health)

	api := s.echo.Group("/api")
	api.GET("/sides/:side/dishes", dishes.ListBySide)
	api.POST("/sides/:side/dishes", dishes.Create)
	api.POST("/dishes/suggest-ingredients", dishes.SuggestIngredients)
	api.POST("/dishes/import", dishes.Import)
	api.GET("/dishes/:id", dishes.Get)
	api.PUT("/dishes/:id", dishes.Update)
	api.POST("/dishes/:id/wish", dishes.SetWished)
	api.POST("/dishes/:id/toggle-wish", dishes.ToggleWish)

	api.GET("/wishes", lists.Wishes)
	api.GET("/shopping-list", lists.Get)
	api.PUT("/shopping-list", lists.Save)
	api.POST("/shopping-list/generate", lists.Generate)
	api.POST("/shopping-list/regenerate", lists.Regenerate)
	api.GET("/shopping-list/image.png", lists.Image)
	api.POST("/shopping-list/share", lists.Share)

	api.GET("/metrics/usage", sys.Usage)

	s.echo.GET("/ws/panel", panels.Serve)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	logger.Info("HTTP server listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
