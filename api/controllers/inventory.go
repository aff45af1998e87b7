package controllers

import (
	"math"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// InventoryVariant reports a variant's availability after local reservations.
// The catalog count is supplied by the caller as ?original=N.
func InventoryVariant(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.PathID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		original, err := validators.ParseQueryInt(r, "original", 0, 0, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, VariantInventoryResponse{
			VariantID: variantID,
			Original:  original,
			Reserved:  sess.Inventory.Adjustment(variantID),
			Available: sess.Inventory.GetAdjustedInventory(variantID, original),
		})
	}
}

// InventoryAvailability sums adjusted availability across a product's variants.
func InventoryAvailability(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload AvailabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variants := make(map[string]int, len(payload.Stock))
		for variantID, original := range payload.Stock {
			variants[variantID] = sess.Inventory.GetAdjustedInventory(variantID, original)
		}
		responses.WriteSuccess(w, AvailabilityResponse{
			Variants:  variants,
			Available: sess.Inventory.GetAdjustedTotal(payload.Stock),
		})
	}
}

func InventorySnapshot(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryResponse(sess.Inventory))
	}
}

// InventoryReset drops every reservation of the session.
func InventoryReset(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Inventory.ResetAdjustments()
		flush(r.Context(), logg, sess)
		responses.WriteSuccess(w, newInventoryResponse(sess.Inventory))
	}
}

// InventoryRefresh bumps the revision so polling clients re-read availability.
func InventoryRefresh(sessions SessionSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess.Inventory.ForceRefresh()
		responses.WriteSuccess(w, newInventoryResponse(sess.Inventory))
	}
}
