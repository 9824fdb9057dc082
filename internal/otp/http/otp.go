package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/agrowcrop/internal/otp/service"
	"github.com/aussiebroadwan/agrowcrop/pkg/agrosdk"
	"github.com/aussiebroadwan/agrowcrop/pkg/httpx"
	"github.com/aussiebroadwan/agrowcrop/pkg/slogx"
)

var (
	errPhoneMissingPrefix = agrosdk.NewAPIError(http.StatusBadRequest, agrosdk.ErrorCodeInvalidPhone,
		"Invalid phone number. Must be in +91XXXXXXXXXX format.")
	errInvalidPhone = agrosdk.NewAPIError(http.StatusBadRequest, agrosdk.ErrorCodeInvalidPhone,
		"Invalid Indian mobile number. Format: +91XXXXXXXXXX")
)

// OTPHandler serves the phone login endpoints.
type OTPHandler struct {
	OTPService   *service.OTPService
	TokenService *service.TokenService
}

// HandleSend handles POST /api/auth/send-otp.
func (h *OTPHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req agrosdk.SendOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		log.Warn("failed to parse request", "err", err)
		agrosdk.ErrAPIInvalidRequest.WriteError(w)
		return
	}

	if err := h.OTPService.SendOrResend(ctx, req.Phone); err != nil {
		if writePhoneError(w, err) {
			log.Warn("rejected phone number", "err", err)
			return
		}
		log.Error("failed to send otp", "err", err)
		agrosdk.ErrAPIServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, agrosdk.SendOTPResponse{Message: "OTP sent successfully"})
}

// HandleVerify handles POST /api/auth/verify-otp.
func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req agrosdk.VerifyOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.OTP == "" {
		log.Warn("failed to parse request", "err", err)
		agrosdk.ErrAPIInvalidRequest.WriteError(w)
		return
	}

	if err := h.OTPService.Verify(ctx, req.Phone, req.OTP); err != nil {
		switch {
		case writePhoneError(w, err):
			log.Warn("rejected phone number", "err", err)
		case errors.Is(err, service.ErrInvalidOTP):
			log.Warn("otp verification failed", "phone", req.Phone)
			agrosdk.ErrAPIInvalidOTP.WriteError(w)
		default:
			log.Error("failed to verify otp", "err", err)
			agrosdk.ErrAPIServerError.WriteError(w)
		}
		return
	}

	tok, err := h.TokenService.Issue(req.Phone)
	if err != nil {
		log.Error("failed to issue session token", "err", err)
		agrosdk.ErrAPIServerError.WriteError(w)
		return
	}

	log.Info("phone verified", "phone", req.Phone, "role", tok.Role)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, agrosdk.VerifyOTPResponse{
		Token: tok.Token,
		Role:  tok.Role,
	})
}

func writePhoneError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, service.ErrPhoneMissingPrefix):
		errPhoneMissingPrefix.WriteError(w)
	case errors.Is(err, service.ErrInvalidPhone):
		errInvalidPhone.WriteError(w)
	default:
		return false
	}
	return true
}
