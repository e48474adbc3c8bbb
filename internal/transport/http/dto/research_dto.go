package dto

import "github.com/fridday/backend/internal/domain"

type SubmitResearchRequest struct {
	Task         string            `json:"task"`
	ReportType   string            `json:"report_type"`
	ReportSource string            `json:"report_source"`
	Tone         string            `json:"tone"`
	UserID       string            `json:"user_id"`
	Topic        string            `json:"topic"`
	JWTToken     string            `json:"jwt_token"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// Validate checks only what this service needs; report parameters are
// forwarded to the researcher untouched.
func (r *SubmitResearchRequest) Validate() []string {
	var errors []string

	if r.Task == "" {
		errors = append(errors, "task is required")
	}
	if r.UserID == "" {
		errors = append(errors, "user_id is required")
	}
	if r.JWTToken == "" {
		errors = append(errors, "jwt_token is required")
	}

	return errors
}

func (r *SubmitResearchRequest) ToDomain() domain.ResearchRequest {
	return domain.ResearchRequest{
		Task:         r.Task,
		ReportType:   r.ReportType,
		ReportSource: r.ReportSource,
		Tone:         r.Tone,
		UserID:       r.UserID,
		Topic:        r.Topic,
		JWTToken:     r.JWTToken,
		Headers:      r.Headers,
	}
}

type SubmitResearchResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ResearchID string `json:"research_id"`
}
