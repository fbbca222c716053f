package model

import "time"

type Prompt struct {
	ID            string    `json:"id"`
	Language      string    `json:"language"`
	DisplayText   string    `json:"display_text"`
	TypingTarget  string    `json:"typing_target"`
	Tags          []string  `json:"tags,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ContestPrompt is the junction between a Contest and the ordered Prompt
// pool it draws from. Primary key is (ContestID, PromptID).
type ContestPrompt struct {
	ContestID  string `json:"contest_id"`
	PromptID   string `json:"prompt_id"`
	OrderIndex int    `json:"order_index"`
}
