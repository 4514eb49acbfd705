package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/draft"
	"github.com/hairizuan-noorazman/linkedin-agent/review"
	"github.com/hairizuan-noorazman/linkedin-agent/session"
	"github.com/hairizuan-noorazman/linkedin-agent/storage"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Human review of drafted actions",
}

var reviewServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pending items for approval and save the approved ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "review")
		if err != nil {
			return err
		}
		defer a.Close()

		// 1. Load the drafts under review
		items, err := readItems(ctx, a, a.config.Review.ItemsPath)
		if err != nil {
			return err
		}

		// 2. Start the server
		sessions := session.NewManager(a.config.Review.SessionDuration, a.logger,
			session.WithMaxSessions(a.config.Review.MaxSessions))
		sessions.StartCleanup(time.Minute)
		defer sessions.StopCleanup()

		state := review.NewState(items)
		server := review.NewServer(state, sessions, a.config.Review.CookieSecret, a.logger)

		ln, err := review.Listen(a.config.Review.Host, a.config.Review.Port)
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		printMessage(fmt.Sprintf("Reviewing %d items at http://%s", len(items), ln.Addr()))

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- server.Serve(ctx, ln)
		}()

		// 3. Save the approved items once submitted
		sub, err := state.WaitSubmission(ctx)
		switch {
		case err == nil:
			saveApproved(ctx, a, state, sub)
		case errors.Is(err, review.ErrReviewClosed), errors.Is(err, context.Canceled):
			printMessage("Review closed without a submission")
		default:
			return err
		}

		// 4. Keep serving results until the reviewer shuts down
		return <-serveErr
	},
}

var reviewDraftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft comments for collected posts and queue them for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "review")
		if err != nil {
			return err
		}
		defer a.Close()

		posts, err := readItems(ctx, a, a.config.Review.PostsPath)
		if err != nil {
			return err
		}

		gen, err := newClassifier(ctx, a.config, a.logger)
		if err != nil {
			return err
		}

		drafted, skipped, err := draft.NewDrafter(gen, a.logger).DraftAll(ctx, posts)
		if err != nil {
			return fmt.Errorf("failed to draft comments: %w", err)
		}

		data, err := json.MarshalIndent(drafted, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode drafts: %w", err)
		}
		if err := storage.WriteAll(ctx, a.storage, a.config.Review.ItemsPath, data); err != nil {
			return fmt.Errorf("failed to save drafts: %w", err)
		}

		printMessage(fmt.Sprintf("Drafted %d comments (%d posts skipped) into %s", len(drafted), skipped, a.config.Review.ItemsPath))
		return nil
	},
}

func readItems(ctx context.Context, a *app, path string) ([]review.Item, error) {
	data, err := storage.ReadAll(ctx, a.storage, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var items []review.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return items, nil
}

func saveApproved(ctx context.Context, a *app, state *review.State, sub review.Submission) {
	defer state.MarkComplete()

	data, err := json.MarshalIndent(sub, "", "  ")
	if err == nil {
		err = storage.WriteAll(ctx, a.storage, a.config.Review.ApprovedPath, data)
	}

	for _, approval := range sub.Approved {
		if err != nil {
			state.RecordResult(approval.ItemID, review.Result{Status: review.StatusFailed, Message: err.Error()})
			continue
		}
		if approval.Text == "" {
			state.RecordResult(approval.ItemID, review.Result{Status: review.StatusSkipped, Message: "empty text"})
			continue
		}
		state.RecordResult(approval.ItemID, review.Result{Status: review.StatusSuccess})
	}

	if err != nil {
		a.logger.Error(ctx, "failed to save approved items", map[string]interface{}{
			"path":  a.config.Review.ApprovedPath,
			"error": err.Error(),
		})
		return
	}
	a.logger.Info(ctx, "approved items saved", map[string]interface{}{
		"path":     a.config.Review.ApprovedPath,
		"approved": len(sub.Approved),
	})
	printMessage(fmt.Sprintf("Saved %d approved items to %s", len(sub.Approved), a.config.Review.ApprovedPath))
}

func init() {
	reviewCmd.AddCommand(reviewDraftCmd)
	reviewCmd.AddCommand(reviewServeCmd)
	rootCmd.AddCommand(reviewCmd)
}
