// Package main implements the kioku review-engine MCP server.
package main

import (
	"github.com/kioku-srs/kioku/internal/card"
	"github.com/kioku-srs/kioku/internal/session"
)

// OptionView is one answer option as presented to the renderer.
type OptionView struct {
	ID       string `json:"id"`
	Front    string `json:"front"`
	Back     string `json:"back"`
	Phonetic string `json:"phonetic,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ActivityView is the renderer-facing shape of one round's activity.
type ActivityView struct {
	Kind         string        `json:"kind"`
	Front        string        `json:"front"`
	Phonetic     string        `json:"phonetic,omitempty"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	FrontAudio   string        `json:"frontAudio,omitempty"`
	Options      []OptionView  `json:"options"`
	CorrectIndex int           `json:"correctIndex"`
	Example      *card.Example `json:"example,omitempty"`
	CardID       string        `json:"cardId"`
}

// SessionStatus reports the orchestrator's position.
type SessionStatus struct {
	State          string `json:"state"`
	Reason         string `json:"reason,omitempty"`
	Round          int    `json:"round"`
	Lives          int    `json:"lives"`
	Frozen         bool   `json:"frozen"`
	DueRemaining   int    `json:"dueRemaining"`
	WrongRemaining int    `json:"wrongRemaining"`
}

// StartSessionResponse is the response for start_session.
type StartSessionResponse struct {
	Status   SessionStatus `json:"status"`
	Activity *ActivityView `json:"activity,omitempty"`
}

// SubmitAnswerResponse is the response for submit_answer.
type SubmitAnswerResponse struct {
	Feedback session.Feedback `json:"feedback"`
	Status   SessionStatus    `json:"status"`
}

// AdvanceResponse is the response for get_current_activity after a round.
type AdvanceResponse struct {
	Status   SessionStatus `json:"status"`
	Activity *ActivityView `json:"activity,omitempty"`
}

// CreateCardResponse is the response for create_card.
type CreateCardResponse struct {
	Card card.Card `json:"card"`
}

// ListCardsResponse is the response for list_cards.
type ListCardsResponse struct {
	Cards []card.Card     `json:"cards"`
	Stats CollectionStats `json:"stats"`
}

// CollectionStats summarizes the collection for display between sessions.
type CollectionStats struct {
	TotalCards    int   `json:"total_cards"`
	DueCards      int   `json:"due_cards"`
	TotalExp      int64 `json:"total_exp"`
	PendingWrites int   `json:"pending_writes"`
}
