// Parley chat: a terminal client that drives a conversational AI session
// through the backend and the RTC room gateway.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/parleylabs/parley/internal/client"
	"github.com/parleylabs/parley/internal/config"
	"github.com/parleylabs/parley/internal/domain"
	"github.com/parleylabs/parley/internal/rtc"
	"github.com/parleylabs/parley/internal/session"
	"github.com/parleylabs/parley/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration:", err)
		os.Exit(1)
	}

	st, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "database:", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("close store", "error", closeErr)
		}
	}()

	mgr := session.NewManager(session.ManagerConfig{
		API:       client.New(cfg.BackendURL),
		Transport: rtc.NewWSTransport(cfg.GatewayURL, logger),
		Archive:   st,
		OnAssistantMessage: func(msg domain.Message) {
			fmt.Printf("\nai> %s\n> ", msg.Content)
		},
		Logger: logger,
	})

	ctx := context.Background()
	if err := mgr.Start(ctx, conversationArg()); err != nil {
		fmt.Fprintln(os.Stderr, "start session:", err)
		os.Exit(1)
	}
	sess, _ := mgr.Session()
	fmt.Printf("Connected. room=%s conversation=%s\nType a message, or /quit to end.\n", sess.RoomID, sess.ConversationID)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			if err := mgr.End(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "end session:", err)
			}
			fmt.Println("Session ended.")
			return
		default:
			if err := mgr.SendText(ctx, line); err != nil {
				fmt.Fprintln(os.Stderr, "send:", err)
			}
		}
		fmt.Print("> ")
	}

	// Stdin closed; tear the session down before exiting.
	if err := mgr.End(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "end session:", err)
	}
}

// conversationArg returns the conversation id to resume, if one was given.
func conversationArg() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return ""
}
