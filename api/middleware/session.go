package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/storefront"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	defaultSessionHeader = "X-Session-Id"
	sessionCookieMaxAge  = 30 * 24 * time.Hour
)

// Session resolves the shopper session from the configured header or cookie.
// Read-only requests without one are issued a fresh id when enabled; other
// requests must carry a valid id.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	header := cfg.Header
	if header == "" {
		header = defaultSessionHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw := strings.TrimSpace(r.Header.Get(header))
			if raw == "" && cfg.Cookie != "" {
				if c, err := r.Cookie(cfg.Cookie); err == nil {
					raw = c.Value
				}
			}

			var sessionID string
			switch {
			case raw != "":
				id, err := storefront.NormalizeSessionID(raw)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSession, "session id is not valid"))
					return
				}
				sessionID = id
			case cfg.IssueOnGet && (r.Method == http.MethodGet || r.Method == http.MethodHead):
				sessionID = storefront.NewSessionID()
				if cfg.Cookie != "" {
					http.SetCookie(w, &http.Cookie{
						Name:     cfg.Cookie,
						Value:    sessionID,
						Path:     "/",
						MaxAge:   int(sessionCookieMaxAge.Seconds()),
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				}
			default:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSession, "session id required"))
				return
			}

			w.Header().Set(header, sessionID)
			ctx = WithSessionID(ctx, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
