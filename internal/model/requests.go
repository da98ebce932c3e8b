package model

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// ChatResponse is the successful reply to POST /chat.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// HistoryResponse is the reply to GET /chat/history/{id}.
type HistoryResponse struct {
	History []Turn `json:"history"`
}

// SetCredentialsRequest is the body of POST /set-user-credentials.
type SetCredentialsRequest struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// AuthCallbackRequest is the body of POST /auth/callback: an authorization
// code obtained by an external (SPA) OAuth flow, exchanged server-side.
type AuthCallbackRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

// CreateEventRequest is the body of POST /calendar/create-event.
type CreateEventRequest struct {
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Timezone    string   `json:"timezone,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
}

// TodoTask is a single task inside a todo list document.
type TodoTask struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Category    string `json:"category,omitempty"`
	Completed   bool   `json:"completed"`
}

// CreateTodoListRequest is the body of POST /todos.
type CreateTodoListRequest struct {
	Name  string     `json:"name"`
	Tasks []TodoTask `json:"tasks,omitempty"`
}
