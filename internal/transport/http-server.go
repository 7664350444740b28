package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/service"
)

const apiKeyContextKey = "apiKey"

type HTTPServer struct {
	e          *echo.Echo
	auth       *service.Auth
	dispatcher *service.Dispatcher
	bookmarks  *service.Bookmarks
	display    *service.Display
	logger     *zap.SugaredLogger
}

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.SugaredLogger,
	auth *service.Auth,
	dispatcher *service.Dispatcher,
	bookmarks *service.Bookmarks,
	display *service.Display,
) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	instance := HTTPServer{
		e:          e,
		auth:       auth,
		dispatcher: dispatcher,
		bookmarks:  bookmarks,
		display:    display,
		logger:     logger,
	}

	e.HTTPErrorHandler = instance.HandleError

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(instance.requestLogger())
	e.Use(middleware.Recover())

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	bookmarkG := e.Group("/api/bookmarks")
	bookmarkG.GET("", instance.BookmarksGet)
	bookmarkG.GET("/tree", instance.BookmarksTree)
	bookmarkG.GET("/bar", instance.BookmarksBar)

	// an unknown key is turned away before the body or the limiter is touched
	syncMiddleware := []echo.MiddlewareFunc{instance.AuthMiddleware, middleware.BodyLimit(cfg.SyncBodyLimit)}
	if cfg.RateLimit > 0 {
		syncMiddleware = append(syncMiddleware, rateLimiter(cfg.RateLimit))
	}
	if logger.Desugar().Core().Enabled(zap.DebugLevel) {
		syncMiddleware = append(syncMiddleware, middleware.BodyDump(func(c echo.Context, reqBody, _ []byte) {
			logger.Debugw("sync request body", "body", string(censorBody(reqBody)))
		}))
	}
	bookmarkG.POST("/sync", instance.Sync, syncMiddleware...)

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				logger.Infow("Starting HTTP server.", "listen", listen)
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					logger.Fatalw("shutting down the server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Sync receives one change event from the browser agent. Authentication has
// already happened in AuthMiddleware, so nothing here runs for an unknown key.
func (s *HTTPServer) Sync(c echo.Context) error {
	payload := models.SyncPayload{}
	if err := c.Echo().JSONSerializer.Deserialize(c, &payload); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid JSON body"})
	}

	cmd, err := service.ParseSyncCommand(&payload)
	if err != nil {
		return err
	}

	resp, err := s.dispatcher.Apply(c.Request().Context(), cmd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarksGet(c echo.Context) error {
	all, err := s.bookmarks.GetAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, all)
}

func (s *HTTPServer) BookmarksTree(c echo.Context) error {
	return c.JSON(http.StatusOK, s.display.Tree(c.Request().Context()))
}

func (s *HTTPServer) BookmarksBar(c echo.Context) error {
	return c.JSON(http.StatusOK, s.display.Bar(c.Request().Context()))
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := service.ExtractBearer(c.Request().Header.Get(echo.HeaderAuthorization))
		key, err := s.auth.ValidateAPIKey(c.Request().Context(), raw)
		if err != nil {
			return err
		}

		c.Set(apiKeyContextKey, key)
		return next(c)
	}
}

func (s *HTTPServer) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				s.logger.Warnw("request", append(fields, "error", v.Error)...)
				return nil
			}
			s.logger.Infow("request", fields...)
			return nil
		},
	})
}

func rateLimiter(limit float64) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "Too many requests"})
		},
	})
}
