package dto

type AgentSessionRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type AgentSessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Meta
}

type AgentRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AgentRefreshResponse struct {
	AccessToken string `json:"access_token"`
	Meta
}
