package dto

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func (r *ChatRequest) Validate() []string {
	var errors []string
	if r.Message == "" {
		errors = append(errors, "message is required")
	}
	return errors
}

type SearchConversationsRequest struct {
	Query     string  `json:"query"`
	Threshold float64 `json:"threshold,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

func (r *SearchConversationsRequest) Validate() []string {
	var errors []string
	if r.Query == "" {
		errors = append(errors, "query is required")
	}
	return errors
}

type DevTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DevRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
