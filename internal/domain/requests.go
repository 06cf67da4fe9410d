package domain

// SendEmailRequest represents a request to send a notification email
type SendEmailRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// SendEmailResponse reports the outcome of a notification attempt
type SendEmailResponse struct {
	ID     string        `json:"id"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// NewSendEmailResponse converts an outcome to its wire form
func NewSendEmailResponse(o Outcome) SendEmailResponse {
	resp := SendEmailResponse{
		ID:     o.ID,
		Status: o.Status,
		Reason: o.Reason,
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}
