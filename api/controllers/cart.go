package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// CartFetch mirrors the backend cart into the session and resyncs inventory.
// A shopper without a backend cart gets ok=false and an empty cart.
func CartFetch(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := sess.Cart.FetchCart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		flush(r.Context(), logg, sess)
		responses.WriteSuccess(w, newCartResponse(res, sess.Cart))
	}
}

// CartAddItem adds a variant to the cart and reserves the quantity.
func CartAddItem(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := sess.Cart.Add(r.Context(), payload.VariantID, payload.Quantity)
		writeMutation(w, r, logg, sess.Cart, res, err, func() { flush(r.Context(), logg, sess) })
	}
}

// CartIncreaseItem bumps a line item by one.
func CartIncreaseItem(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return changeQuantity(sessions, logg, func(s *cart.Store, r *http.Request, lineItemID string, current int) (cart.Result, error) {
		return s.Increase(r.Context(), lineItemID, current)
	})
}

// CartDecreaseItem lowers a line item by one, removing it at quantity one.
func CartDecreaseItem(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return changeQuantity(sessions, logg, func(s *cart.Store, r *http.Request, lineItemID string, current int) (cart.Result, error) {
		return s.Decrease(r.Context(), lineItemID, current)
	})
}

// CartClear empties the local cart mirror. The backend cart is untouched.
func CartClear(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res := sess.Cart.ClearLocal()
		flush(r.Context(), logg, sess)
		responses.WriteSuccess(w, newCartResponse(res, sess.Cart))
	}
}

type quantityOp func(s *cart.Store, r *http.Request, lineItemID string, current int) (cart.Result, error)

func changeQuantity(sessions SessionSource, logg *logger.Logger, op quantityOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lineItemID, err := validators.PathID(r, "lineItemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ChangeQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := op(sess.Cart, r, lineItemID, payload.CurrentQuantity)
		writeMutation(w, r, logg, sess.Cart, res, err, func() { flush(r.Context(), logg, sess) })
	}
}

func writeMutation(w http.ResponseWriter, r *http.Request, logg *logger.Logger, store *cart.Store, res cart.Result, err error, persist func()) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if !res.OK && res.Reason == cart.ReasonNoCart {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.New(pkgerrors.CodeNoCart, "no cart is available for this session").
				WithDetails(map[string]any{"reason": res.Reason}))
		return
	}
	persist()
	responses.WriteSuccess(w, newCartResponse(res, store))
}
