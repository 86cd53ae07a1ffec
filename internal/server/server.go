package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/swap-backend/internal/handler"
	"github.com/shinyyama/swap-backend/internal/identity"
	appmw "github.com/shinyyama/swap-backend/internal/middleware"
	"github.com/shinyyama/swap-backend/internal/presence"
	"github.com/shinyyama/swap-backend/internal/service"
)

// Deps are the collaborators the HTTP surface routes to.
type Deps struct {
	Conversations service.ConversationService
	Messages      service.MessageService
	Offers        service.OfferService
	Directory     identity.Directory
	Hub           *presence.Hub
	Auth          appmw.Authenticator
	Logger        *slog.Logger
}

type Server struct {
	e      *echo.Echo
	logger *slog.Logger
}

func New(deps Deps, originSuffixes []string, sha, buildTime string) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestContext)
	e.Use(requestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", appmw.UserIDHeader},
		AllowCredentials: true,
		AllowOriginFunc:  AllowOrigin(originSuffixes),
	}))

	convHandler := handler.NewConversationHandler(deps.Conversations, deps.Messages, logger)
	offerHandler := handler.NewOfferHandler(deps.Offers, logger)
	userHandler := handler.NewUserHandler(deps.Directory, logger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	auth := deps.Auth.RequireAuth
	if deps.Hub != nil {
		rtHandler := handler.NewRealtimeHandler(deps.Hub, logger)
		e.GET("/ws", rtHandler.Connect, auth)
	}

	api := e.Group("/api")
	api.POST("/conversations", convHandler.Create, auth)
	api.GET("/conversations", convHandler.List, auth)
	api.GET("/conversations/:id", convHandler.Get, auth)
	api.DELETE("/conversations/:id", convHandler.Hide, auth)
	api.GET("/conversations/:id/messages", convHandler.ListMessages, auth)
	api.POST("/conversations/:id/messages", convHandler.CreateMessage, auth)

	api.POST("/offers", offerHandler.Create, auth)
	api.GET("/offers/sent", offerHandler.ListSent, auth)
	api.GET("/offers/received", offerHandler.ListReceived, auth)
	api.GET("/offers/:id", offerHandler.Get, auth)
	api.GET("/offers/:id/chain", offerHandler.GetChain, auth)
	api.PUT("/offers/:id/accept", offerHandler.Accept, auth)
	api.PUT("/offers/:id/reject", offerHandler.Reject, auth)
	api.PUT("/offers/:id/withdraw", offerHandler.Withdraw, auth)
	api.POST("/offers/:id/counter", offerHandler.Counter, auth)
	api.DELETE("/offers/:id", offerHandler.Delete, auth)

	api.GET("/users/:uid/public", userHandler.GetPublic)

	return &Server{e: e, logger: logger}
}

func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// AllowOrigin accepts localhost on any port plus http(s) hosts ending in
// one of the suffixes.
func AllowOrigin(suffixes []string) func(origin string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		host := u.Hostname()
		for _, suffix := range suffixes {
			suffix = strings.TrimSpace(suffix)
			if suffix != "" && strings.HasSuffix(host, suffix) {
				return true, nil
			}
		}
		return false, nil
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if uid, ok := c.Get("uid").(string); ok && uid != "" {
				attrs = append(attrs, "uid", uid)
			}
			if v.Error != nil {
				logger.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	})
}
