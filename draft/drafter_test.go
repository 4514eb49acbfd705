package draft

import (
	"context"
	"errors"
	"testing"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

func TestDrafter_Draft(t *testing.T) {
	gen := &stubGenerator{text: `"Congratulations on the result, two years is a long road."`}
	d := NewDrafter(gen, logger.NewTestLogger())

	item, err := d.Draft(context.Background(), samplePost(), "")
	require.NoError(t, err)

	assert.Equal(t, "Congratulations on the result, two years is a long road.", item.Draft)
	assert.Equal(t, "urn:li:activity:1", item.ID)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Jane Tan")
}

func TestDrafter_Fallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{name: "generation error", gen: &stubGenerator{err: errors.New("throttled")}},
		{name: "empty output", gen: &stubGenerator{text: "<p></p>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewTestLogger()
			d := NewDrafter(tt.gen, log)

			item, err := d.Draft(context.Background(), samplePost(), "")
			require.NoError(t, err)
			assert.Equal(t, FallbackComment, item.Draft)
			assert.True(t, log.HasMessage("draft generation failed, using fallback"))
		})
	}
}

func TestDrafter_NoFallback(t *testing.T) {
	d := NewDrafter(&stubGenerator{text: ""}, logger.NewTestLogger(), WithFallback(""))

	_, err := d.Draft(context.Background(), samplePost(), "")
	assert.ErrorIs(t, err, ErrEmptyDraft)
}

func TestDrafter_ValidationSkipsModel(t *testing.T) {
	gen := &stubGenerator{text: "unused"}
	d := NewDrafter(gen, logger.NewTestLogger())

	item := samplePost()
	item.Content = "Hi"
	_, err := d.Draft(context.Background(), item, "")

	assert.ErrorIs(t, err, ErrContentTooShort)
	assert.Empty(t, gen.prompts)
}

func TestDrafter_DraftAll(t *testing.T) {
	gen := &stubGenerator{text: "Well put."}
	log := logger.NewTestLogger()
	d := NewDrafter(gen, log)

	short := samplePost()
	short.ID = "short"
	short.Content = "Hiring!"

	existing := samplePost()
	existing.ID = "existing"
	existing.Draft = "Already written."

	drafted, skipped, err := d.DraftAll(context.Background(), []review.Item{samplePost(), short, existing})
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Len(t, drafted, 2)
	assert.Equal(t, "Well put.", drafted[0].Draft)
	assert.Equal(t, "Already written.", drafted[1].Draft)
	assert.Len(t, gen.prompts, 1)
	assert.True(t, log.HasMessage("skipping post"))
}

func TestDrafter_DraftAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDrafter(&stubGenerator{text: "Well put."}, logger.NewTestLogger(), WithLimits(Limits{MinContentLength: 1}))
	drafted, _, err := d.DraftAll(ctx, []review.Item{samplePost()})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, drafted)
}
