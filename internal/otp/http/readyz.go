package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/agrowcrop/internal/otp/store"
	"github.com/aussiebroadwan/agrowcrop/pkg/agrosdk"
	"github.com/aussiebroadwan/agrowcrop/pkg/httpx"
	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
)

// ReadyzHandler reports 503 until the database answers and a signing key is loaded.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	keys *jwtx.KeySet,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"signer":   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if !keys.IsReady() {
			checks["signer"] = "error: no keys loaded"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, agrosdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
