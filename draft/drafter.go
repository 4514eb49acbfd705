package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/review"
)

// FallbackComment is used when the model call fails.
const FallbackComment = "Thank you for sharing this insightful perspective."

// Generator produces text for a prompt. classifier.Classifier satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Drafter writes comment drafts for posts awaiting review.
type Drafter struct {
	generator Generator
	limits    Limits
	fallback  string
	logger    logger.Logger
}

// Option configures a Drafter.
type Option func(*Drafter)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) Option {
	return func(d *Drafter) {
		d.limits = l
	}
}

// WithFallback sets the text used when generation fails. An empty fallback
// turns generation failures into errors.
func WithFallback(text string) Option {
	return func(d *Drafter) {
		d.fallback = text
	}
}

// NewDrafter creates a Drafter over gen.
func NewDrafter(gen Generator, log logger.Logger, opts ...Option) *Drafter {
	d := &Drafter{
		generator: gen,
		limits:    DefaultLimits(),
		fallback:  FallbackComment,
		logger:    log.WithField("component", "drafter"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Draft returns item with Draft filled in. Prompt validation errors are
// returned as is; generation errors fall back to the fallback comment.
func (d *Drafter) Draft(ctx context.Context, item review.Item, date string) (review.Item, error) {
	prompt, err := BuildPrompt(item, date, d.limits)
	if err != nil {
		return item, err
	}

	text, err := d.generator.Generate(ctx, prompt)
	if err == nil {
		text = CleanDraft(text)
		if text == "" {
			err = ErrEmptyDraft
		}
	}
	if err != nil {
		if d.fallback == "" {
			return item, fmt.Errorf("failed to generate draft: %w", err)
		}
		d.logger.Warn(ctx, "draft generation failed, using fallback", map[string]interface{}{
			"item_id": item.ID,
			"error":   err.Error(),
		})
		text = d.fallback
	}

	item.Draft = text
	return item, nil
}

// DraftAll drafts every item that has no draft yet. Items that fail
// validation are dropped and counted in skipped.
func (d *Drafter) DraftAll(ctx context.Context, items []review.Item) (drafted []review.Item, skipped int, err error) {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return drafted, skipped, err
		}
		if item.Draft != "" {
			drafted = append(drafted, item)
			continue
		}

		out, err := d.Draft(ctx, item, "")
		switch {
		case err == nil:
			drafted = append(drafted, out)
		case errors.Is(err, ErrContentTooShort), errors.Is(err, ErrSuspiciousContent):
			d.logger.Info(ctx, "skipping post", map[string]interface{}{
				"item_id": item.ID,
				"reason":  err.Error(),
			})
			skipped++
		default:
			return drafted, skipped, err
		}
	}

	d.logger.Info(ctx, "drafts ready for review", map[string]interface{}{
		"drafted": len(drafted),
		"skipped": skipped,
	})
	return drafted, skipped, nil
}
