package rpc

import "github.com/dmitrijs2005/farmgate/internal/server/models"

type SendOTPRequest struct {
	Email string `json:"email"`
}

type SendOTPResponse struct {
	Success bool `json:"success"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyOTPResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type LogoutRequest struct{}

type LogoutResponse struct {
	Success bool `json:"success"`
}

type MeRequest struct{}

// MeResponse carries the caller's session; Success is false for anonymous
// callers.
type MeResponse struct {
	Success bool                     `json:"success"`
	Session *models.SessionWithUser `json:"session,omitempty"`
}
