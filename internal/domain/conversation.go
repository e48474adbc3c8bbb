package domain

// Conversation is one persisted chat turn, embedded for later
// similarity search on the database side.
type Conversation struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Title      string    `json:"title"`
	Metadata   JSONB     `json:"metadata"`
	IsArchived bool      `json:"is_archived"`
	Embedding  []float32 `json:"embedding"`
}

// ConversationTurn is the role/content pair returned when replaying a
// session's history.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationMatch is one row returned by the match_conversations RPC.
type ConversationMatch struct {
	Content    string  `json:"content"`
	Role       string  `json:"role"`
	Similarity float64 `json:"similarity"`
}
