package models

import "time"

// AssistantMessage is the model for the 'assistant_messages' table.
type AssistantMessage struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	UserMessage string    `json:"userMessage" db:"user_message"`
	Reply       string    `json:"reply" db:"reply"`
	TokensUsed  int       `json:"tokensUsed" db:"tokens_used"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
