package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/app"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/checkpoint"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
)

const (
	openingUtterance = "Hi"
	turnFailedReply  = "Sorry, something went wrong. Please try again."
)

var (
	botColor    = color.New(color.FgYellow, color.Bold)
	promptColor = color.New(color.FgCyan)
	dimColor    = color.New(color.Faint)
)

func chatCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Take an order interactively",
		Long:  "Chat opens a drive-thru conversation on the terminal. Type quit, exit or q (or press Ctrl-D) to leave; the session is saved after every turn and can be resumed with --session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *app.Service) error {
				return runChat(ctx, svc, sessionID, os.Stdin, os.Stdout)
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session")
	return cmd
}

func runChat(ctx context.Context, svc *app.Service, sessionID string, in io.Reader, out io.Writer) error {
	cat := svc.Catalog
	fmt.Fprintf(out, "%s (%d items) at %s, %s\n", cat.MenuName, cat.Len(), cat.Location.Name, cat.Location.FullAddress())
	dimColor.Fprintln(out, "Type quit to leave.")

	if sessionID == "" {
		sessionID = "cli-" + uuid.NewString()
		if !sayTurn(ctx, svc, sessionID, openingUtterance, out) {
			return nil
		}
	} else {
		conv, err := svc.Session(ctx, sessionID)
		switch {
		case err == nil:
			if conv.Finalized {
				fmt.Fprintln(out, "That order is already complete.")
				printOrderTo(out, conv.Order)
				return nil
			}
			botColor.Fprintf(out, "Bot: %s\n", conv.LastReply())
		case errors.Is(err, checkpoint.ErrNotFound):
			if !sayTurn(ctx, svc, sessionID, openingUtterance, out) {
				return nil
			}
		default:
			return err
		}
	}
	dimColor.Fprintf(out, "session %s\n", sessionID)

	scanner := bufio.NewScanner(in)
	for {
		promptColor.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		switch strings.ToLower(text) {
		case "quit", "exit", "q":
			return nil
		}
		if !sayTurn(ctx, svc, sessionID, text, out) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
	}
}

// sayTurn runs one turn and prints the reply. It returns false once the
// order is finalized and the chat should end.
func sayTurn(ctx context.Context, svc *app.Service, sessionID, text string, out io.Writer) bool {
	res, err := svc.Turn(ctx, sessionID, text)
	if err != nil {
		svc.Log().Debug("chat turn failed", zap.String("session_id", sessionID), zap.Error(err))
		if errors.Is(err, engine.ErrFinalized) {
			fmt.Fprintln(out, "That order is already complete.")
			return false
		}
		botColor.Fprintf(out, "Bot: %s\n", turnFailedReply)
		return true
	}
	botColor.Fprintf(out, "Bot: %s\n", res.Reply)
	if res.Finalized {
		fmt.Fprintln(out)
		printOrderTo(out, res.Conversation.Order)
		return false
	}
	return true
}
