package model

// StrategyRequest is the gateway's request body.
type StrategyRequest struct {
	Query    string `json:"query"`
	Password string `json:"password"`
}

// ErrorResponse is the envelope of every JSON error the gateway returns.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type UnlockRequest struct {
	Password string `json:"password" binding:"required"`
}

type UnlockResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Provider bool   `json:"provider"`
}
