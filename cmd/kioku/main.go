package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kioku-srs/kioku/internal/config"
	"github.com/kioku-srs/kioku/internal/storage"
)

const serverInstructions = `
This server drives a spaced-repetition vocabulary review session. You act as
the exercise renderer: present each activity to the learner, collect their
answer, and report whether it was correct.

Workflow:
1. Call start_session. If the session is already complete, nothing is due.
2. Render the current activity: show the prompt side only, never the answer,
   and present the options in the given order (they are pre-shuffled).
3. Call submit_answer with correct=true/false after the learner responds.
4. On a wrong answer the session freezes: show the feedback payload (front,
   back, phonetic, example), then call acknowledge_feedback.
5. Call get_current_activity to move to the next round, until the status
   reports complete or failed. Missed cards reappear later in the session.
6. The learner may stop at any time via abort_session; this is not a failure.
`

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("kioku", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to YAML config file")
	flags.String("storage.backend", "file", "Card storage backend (file or sqlite)")
	flags.String("storage.path", "./kioku.json", "Path to the card store")
	flags.String("log_level", "info", "Log level (debug, info, warn, error)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Printf("Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	store, err := openStorage(cfg)
	if err != nil {
		fmt.Printf("Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	reviewService := NewReviewService(store, cfg)
	defer reviewService.Logger.Sync()
	reviewService.Logger.Info("storage ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path))

	s := server.NewMCPServer(
		"Kioku Review Engine",
		"1.0.0",
		server.WithInstructions(serverInstructions),
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	// Context carrying the service for tool handlers.
	ctx := context.WithValue(context.Background(), "service", reviewService)

	startSessionTool := mcp.NewTool("start_session",
		mcp.WithDescription(
			"Start a review session over the cards currently due. "+
				"Returns the first activity and the session status. "+
				"An empty due set completes immediately; that is normal, not an error.",
		),
	)

	getActivityTool := mcp.NewTool("get_current_activity",
		mcp.WithDescription(
			"Get the activity for the current round, advancing to the next round "+
				"when the previous one was scored. Render only the prompt side; the "+
				"options are pre-shuffled, so keep their order.",
		),
	)

	submitAnswerTool := mcp.NewTool("submit_answer",
		mcp.WithDescription(
			"Report the learner's outcome for the current round. "+
				"A wrong answer costs a life, requeues the card for later in the "+
				"session, and freezes the session until acknowledge_feedback.",
		),
		mcp.WithBoolean("correct",
			mcp.Required(),
			mcp.Description("Whether the learner answered correctly"),
		),
	)

	acknowledgeTool := mcp.NewTool("acknowledge_feedback",
		mcp.WithDescription("Unlock the session after showing wrong-answer feedback."),
	)

	abortSessionTool := mcp.NewTool("abort_session",
		mcp.WithDescription("End the session early without penalty. The in-flight round is discarded."),
	)

	sessionStatusTool := mcp.NewTool("get_session_status",
		mcp.WithDescription("Get the session state, round count, lives and queue sizes."),
	)

	createCardTool := mcp.NewTool("create_card",
		mcp.WithDescription("Create a new vocabulary card. It becomes due immediately."),
		mcp.WithString("front",
			mcp.Required(),
			mcp.Description("The word being learned"),
		),
		mcp.WithString("back",
			mcp.Required(),
			mcp.Description("The translation"),
		),
		mcp.WithString("phonetic",
			mcp.Description("Pronunciation hint"),
		),
		mcp.WithString("image_url",
			mcp.Description("Illustration URL"),
		),
		mcp.WithString("front_audio",
			mcp.Description("Pronunciation audio URL"),
		),
	)

	listCardsTool := mcp.NewTool("list_cards",
		mcp.WithDescription("List all cards with collection statistics (total, due, experience)."),
	)

	importDeckTool := mcp.NewTool("import_deck",
		mcp.WithDescription(
			"Bulk-import cards from an XLSX or CSV deck file. Columns: front, back, "+
				"phonetic, image URL, audio URL, examples ('question|answer|translation' "+
				"entries separated by ';'). The first row is treated as a header.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the deck file"),
		),
		mcp.WithString("sheet",
			mcp.Description("XLSX sheet name (default Sheet1)"),
		),
	)

	s.AddTool(startSessionTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleStartSession(ctx, request)
	})
	s.AddTool(getActivityTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetCurrentActivity(ctx, request)
	})
	s.AddTool(submitAnswerTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSubmitAnswer(ctx, request)
	})
	s.AddTool(acknowledgeTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAcknowledgeFeedback(ctx, request)
	})
	s.AddTool(abortSessionTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAbortSession(ctx, request)
	})
	s.AddTool(sessionStatusTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetSessionStatus(ctx, request)
	})
	s.AddTool(createCardTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCreateCard(ctx, request)
	})
	s.AddTool(listCardsTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListCards(ctx, request)
	})
	s.AddTool(importDeckTool, func(reqCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleImportDeck(ctx, request)
	})

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}

// openStorage builds the configured backend wrapped in the write-retry
// layer.
func openStorage(cfg config.Config) (storage.Storage, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}

	var inner storage.Storage
	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := storage.OpenSQLite(cfg.Storage.Path, logger)
		if err != nil {
			return nil, err
		}
		inner = db
	default:
		fs := storage.NewFileStorage(cfg.Storage.Path, logger)
		if err := fs.Load(); err != nil {
			return nil, err
		}
		inner = fs
	}

	return storage.NewRetryStorage(inner, cfg.Storage.FlushInterval, logger), nil
}
