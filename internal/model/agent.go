package model

// Agent is an assignment target: an operator who can work a conversation.
// Read-only reference data, fetched once and cached for the session.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}
