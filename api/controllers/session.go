package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/storefront"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// SessionSource resolves the stores of a shopper session.
type SessionSource interface {
	Get(ctx context.Context, sessionID string) (*storefront.Session, error)
}

func sessionFromRequest(r *http.Request, sessions SessionSource) (*storefront.Session, error) {
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session registry unavailable")
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeSession, "session id required")
	}
	sess, err := sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, storefront.ErrInvalidSession) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeSession, err, "session id is not valid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return sess, nil
}

// flush persists session state after a handled operation. A failed write is
// logged; the in-memory state and the backend cart are already updated.
func flush(ctx context.Context, logg *logger.Logger, sess *storefront.Session) {
	if err := sess.Flush(ctx); err != nil && logg != nil {
		logg.Error(ctx, "session.persist_failed", err)
	}
}
