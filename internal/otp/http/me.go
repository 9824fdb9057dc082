package http

import (
	"net/http"

	"github.com/aussiebroadwan/agrowcrop/pkg/agrosdk"
	"github.com/aussiebroadwan/agrowcrop/pkg/httpx"
)

// MeHandler handles GET /api/auth/me, echoing the verified session claims.
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		if !ok {
			agrosdk.NewAPIError(http.StatusUnauthorized, agrosdk.ErrorCodeInvalidToken, "missing session").WriteError(w)
			return
		}

		resp := agrosdk.MeResponse{
			Phone: claims.Phone,
			Role:  claims.Role,
		}
		if claims.ExpiresAt != nil {
			resp.ExpiresAt = claims.ExpiresAt.Unix()
		}

		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}
