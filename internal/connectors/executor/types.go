package executor

// MessageRequest is one incoming message from any front end.
type MessageRequest struct {
	UserID    string // optional, for logging
	SessionID string // optional, for logging
	Message   string
}

// MessageResponse is the reply to a MessageRequest.
type MessageResponse struct {
	Text  string `json:"response"`
	Mood  string `json:"mood"`
	Route string `json:"-"`
	// Exit is set when the user asked to end the conversation.
	Exit bool `json:"-"`
}

// Reply routes, also used as the metrics label.
const (
	RouteExit     = "exit"
	RouteLearn    = "learn"
	RouteCache    = "cache"
	RouteLive     = "live"
	RouteComposer = "composer"
)
