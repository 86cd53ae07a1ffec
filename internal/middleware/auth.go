package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/swap-backend/internal/reqctx"
	"google.golang.org/api/option"
)

// UserIDHeader carries the caller id when AUTH_MODE=header.
const UserIDHeader = "X-User-ID"

// Authenticator resolves the caller of a request and stores it under "uid".
type Authenticator interface {
	RequireAuth(next echo.HandlerFunc) echo.HandlerFunc
}

type AuthMiddleware struct {
	authClient *auth.Client
}

func NewAuthMiddleware(ctx context.Context, projectID, credentialsFile string) (*AuthMiddleware, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id is not set")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthMiddleware{authClient: client}, nil
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr := bearerToken(c.Request())
		if tokenStr == "" {
			return c.JSON(http.StatusUnauthorized, unauthorized("missing bearer token"))
		}
		token, err := m.authClient.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, unauthorized("invalid token"))
		}
		setUID(c, token.UID)
		return next(c)
	}
}

func (m *AuthMiddleware) Client() *auth.Client {
	return m.authClient
}

// HeaderAuth trusts the X-User-ID header. Only for local development and
// deployments behind an authenticating proxy.
type HeaderAuth struct{}

func (HeaderAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid := strings.TrimSpace(c.Request().Header.Get(UserIDHeader))
		if uid == "" {
			// Browsers cannot set headers on websocket upgrades.
			uid = strings.TrimSpace(c.QueryParam("uid"))
		}
		if uid == "" {
			return c.JSON(http.StatusUnauthorized, unauthorized("missing "+UserIDHeader))
		}
		setUID(c, uid)
		return next(c)
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter used by websocket clients.
func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func setUID(c echo.Context, uid string) {
	c.Set("uid", uid)
	req := c.Request()
	c.SetRequest(req.WithContext(reqctx.WithUID(req.Context(), uid)))
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func unauthorized(msg string) errorBody {
	var b errorBody
	b.Error.Code = "unauthorized"
	b.Error.Message = msg
	return b
}
