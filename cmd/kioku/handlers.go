package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kioku-srs/kioku/internal/session"
)

// serviceFrom pulls the review service out of the handler context.
func serviceFrom(ctx context.Context) (*ReviewService, bool) {
	s, ok := ctx.Value("service").(*ReviewService)
	return s, ok && s != nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func errorResult(msg string) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(fmt.Sprintf(`{"error": %q}`, msg)), nil
}

// handleStartSession handles start_session: it selects the due cards,
// builds the first activity and returns it with the session status. An
// empty due set is a completed session, not an error.
func handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	resp, err := s.StartSession()
	if err != nil {
		return errorResult(fmt.Sprintf("Error starting session: %v", err))
	}
	return jsonResult(resp)
}

// handleGetCurrentActivity handles get_current_activity, advancing to the
// next round when the previous one was scored and acknowledged.
func handleGetCurrentActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	resp, err := s.CurrentActivity()
	if err != nil {
		if errors.Is(err, session.ErrFrozen) {
			return errorResult("Feedback must be acknowledged before the next round")
		}
		if errors.Is(err, ErrNoActiveSession) {
			return errorResult("No active session; call start_session first")
		}
		return errorResult(fmt.Sprintf("Error getting activity: %v", err))
	}
	return jsonResult(resp)
}

// handleSubmitAnswer handles submit_answer for the active round.
func handleSubmitAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	correct, ok := request.Params.Arguments["correct"].(bool)
	if !ok {
		return errorResult("Missing required parameter: correct")
	}

	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	resp, err := s.SubmitAnswer(correct)
	if err != nil {
		if errors.Is(err, session.ErrSessionOver) {
			return errorResult("The session has ended")
		}
		if errors.Is(err, session.ErrNotRoundActive) {
			return errorResult("No round is awaiting an answer")
		}
		if errors.Is(err, ErrNoActiveSession) {
			return errorResult("No active session; call start_session first")
		}
		return errorResult(fmt.Sprintf("Error submitting answer: %v", err))
	}
	return jsonResult(resp)
}

// handleAcknowledgeFeedback handles acknowledge_feedback, unlocking the
// session after a wrong answer.
func handleAcknowledgeFeedback(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	status, err := s.AcknowledgeFeedback()
	if err != nil {
		return errorResult(fmt.Sprintf("Error acknowledging feedback: %v", err))
	}
	return jsonResult(status)
}

// handleAbortSession handles abort_session: early exit, no penalty.
func handleAbortSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	status, err := s.AbortSession()
	if err != nil {
		return errorResult(fmt.Sprintf("Error aborting session: %v", err))
	}
	return jsonResult(status)
}

// handleGetSessionStatus handles get_session_status.
func handleGetSessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	status, err := s.SessionStatus()
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			return errorResult("No active session")
		}
		return errorResult(fmt.Sprintf("Error getting status: %v", err))
	}
	return jsonResult(status)
}

// handleCreateCard handles create_card.
func handleCreateCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	front, ok := request.Params.Arguments["front"].(string)
	if !ok || front == "" {
		return errorResult("Missing required parameter: front")
	}
	back, ok := request.Params.Arguments["back"].(string)
	if !ok || back == "" {
		return errorResult("Missing required parameter: back")
	}
	phonetic, _ := request.Params.Arguments["phonetic"].(string)
	imageURL, _ := request.Params.Arguments["image_url"].(string)
	frontAudio, _ := request.Params.Arguments["front_audio"].(string)

	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	c, err := s.CreateCard(front, back, phonetic, imageURL, frontAudio)
	if err != nil {
		return errorResult(fmt.Sprintf("Error creating card: %v", err))
	}
	return jsonResult(CreateCardResponse{Card: c})
}

// handleListCards handles list_cards.
func handleListCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	cards, stats, err := s.ListCards()
	if err != nil {
		return errorResult(fmt.Sprintf("Error listing cards: %v", err))
	}
	return jsonResult(ListCardsResponse{Cards: cards, Stats: stats})
}

// handleImportDeck handles import_deck for XLSX/CSV deck files.
func handleImportDeck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, ok := request.Params.Arguments["path"].(string)
	if !ok || path == "" {
		return errorResult("Missing required parameter: path")
	}
	sheet, _ := request.Params.Arguments["sheet"].(string)

	s, ok := serviceFrom(ctx)
	if !ok {
		return errorResult("Service not available")
	}

	result, err := s.ImportDeck(path, sheet)
	if err != nil {
		return errorResult(fmt.Sprintf("Error importing deck: %v", err))
	}
	return jsonResult(result)
}
