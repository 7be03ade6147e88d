package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/farmgate/internal/common"
	"github.com/dmitrijs2005/farmgate/internal/server/gate"
	"github.com/dmitrijs2005/farmgate/internal/server/models"
	"github.com/dmitrijs2005/farmgate/internal/server/services"
)

const maxBodyBytes = 1 << 16

const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeInvalidOTP      = "INVALID_OTP"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

type successResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type verifyOTPResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type meResponse struct {
	Success bool                     `json:"success"`
	Session *models.SessionWithUser `json:"session,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: CodeBadRequest})
	case errors.Is(err, common.ErrInvalidOTP):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: CodeInvalidOTP})
	case errors.Is(err, common.ErrTooManyAttempts):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Code: CodeTooManyRequests})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: CodeInternal})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return common.ErrorValidation
	}
	return nil
}

func (s *HTTPServer) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := services.NormalizeEmail(req.Email)
	if !services.ValidEmail(email) {
		writeError(w, common.ErrorValidation)
		return
	}

	if err := s.auth.IssueOTP(r.Context(), email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *HTTPServer) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	email := services.NormalizeEmail(req.Email)
	if !services.ValidEmail(email) || len(req.Code) != 6 {
		writeError(w, common.ErrorValidation)
		return
	}

	session, err := s.auth.VerifyOTP(r.Context(), email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, s.cookies.SessionCookie(session.Token))
	writeJSON(w, http.StatusOK, verifyOTPResponse{Success: true, Token: session.Token})
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	if sess := gate.FromContext(r.Context()); sess != nil {
		if err := s.auth.Logout(r.Context(), sess.ID); err != nil {
			writeError(w, err)
			return
		}
	}

	http.SetCookie(w, s.cookies.ClearSessionCookie())
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	sess := gate.FromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusOK, meResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Success: true, Session: s.auth.Profile(r.Context(), sess)})
}
