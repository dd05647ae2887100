package model

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type AuthLogoutResponse struct {
	Status string `json:"status"`
}

type AuthMeResponse struct {
	AccountID  string    `json:"accountId"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	SessionID  string    `json:"sessionId"`
	DeviceName string    `json:"deviceName"`
	IPAddress  string    `json:"ipAddress"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type AuthConfigResponse struct {
	AllowSignup      bool `json:"allowSignup"`
	TwoFactorEnabled bool `json:"twoFactorEnabled"`
}
