package agent

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/browser"
	"github.com/hairizuan-noorazman/linkedin-agent/classifier"
	"github.com/hairizuan-noorazman/linkedin-agent/configstore"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/hairizuan-noorazman/linkedin-agent/storage"
	"github.com/hairizuan-noorazman/linkedin-agent/testutil"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type harness struct {
	page    *browser.FakePage
	sleeper *pacing.RecordingSleeper
	config  *configstore.Store
	storage storage.BlobStorage
	log     *logger.TestLogger
	opts    []pacing.Option
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	blob := testutil.NewTempStorage(t)
	log := logger.NewTestLogger()
	sleeper := &pacing.RecordingSleeper{}
	return &harness{
		page:    browser.NewFakePage(),
		sleeper: sleeper,
		config:  configstore.New(context.Background(), blob, "config.json", log),
		storage: blob,
		log:     log,
		opts:    []pacing.Option{pacing.WithSleeper(sleeper), pacing.WithRand(rand.New(rand.NewSource(7)))},
	}
}

func (h *harness) set(t *testing.T, key string, value interface{}) {
	t.Helper()
	require.NoError(t, h.config.Set(context.Background(), key, value))
}

func (h *harness) env(t *testing.T, task Task, cls classifier.Classifier) *Env {
	t.Helper()
	limiter, err := pacing.NewRateLimiter(task.Limiter(pacing.LimiterConfigFrom(h.config), h.config), h.opts...)
	require.NoError(t, err)
	return &Env{
		Page:       h.page,
		Human:      pacing.NewHumanizer(h.page, h.opts...),
		Limiter:    limiter,
		Config:     h.config,
		Storage:    h.storage,
		Classifier: cls,
		Logger:     h.log,
		Settings:   Config{SelfProfileURL: "https://www.linkedin.com/in/me"},
		now:        func() time.Time { return testNow },
		pacing:     h.opts,
	}
}

func (h *harness) clicks() []string {
	var out []string
	for _, a := range h.page.History() {
		if name, ok := strings.CutPrefix(a, "click "); ok {
			out = append(out, name)
		}
	}
	return out
}

type stubClassifier struct {
	label classifier.Label
	err   error
	seen  []string
}

func (s *stubClassifier) Classify(ctx context.Context, text string) (classifier.Label, error) {
	s.seen = append(s.seen, text)
	return s.label, s.err
}

func (s *stubClassifier) Generate(ctx context.Context, prompt string) (string, error) {
	return "", classifier.ErrGenerationUnavailable
}
