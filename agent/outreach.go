package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/browser"
	"github.com/hairizuan-noorazman/linkedin-agent/classifier"
	"github.com/hairizuan-noorazman/linkedin-agent/configstore"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
)

const (
	// ConnectionsURL lists the user's connections, most recent first.
	ConnectionsURL = "https://www.linkedin.com/mynetwork/invite-connect/connections/"

	outreachStatePath = "outreach_history.json"
	defaultOutreach   = "Hi {first_name},\n\nThank you for connecting! I look forward to following your work.\n\nBest regards"
)

// Step failures that feed a tuned parameter. They are logged but not counted
// as errors.
var (
	errChatNotOpened     = errors.New("chat did not open")
	errIdentityMismatch  = errors.New("chat opened for someone else")
	errUploadFailed      = errors.New("attachment upload failed")
	errMessageUnverified = errors.New("sent message not visible")
)

func isStepFailure(err error) bool {
	return errors.Is(err, errChatNotOpened) ||
		errors.Is(err, errIdentityMismatch) ||
		errors.Is(err, errUploadFailed) ||
		errors.Is(err, errMessageUnverified)
}

// OutreachTask messages recent connections found on the connections page,
// optionally attaching a file.
type OutreachTask struct{}

func (t *OutreachTask) Kind() runhistory.AgentType {
	return runhistory.AgentOutreach
}

// Limiter keeps the base pacing.
func (t *OutreachTask) Limiter(base pacing.LimiterConfig, cfg *configstore.Store) pacing.LimiterConfig {
	return base
}

type connection struct {
	Name     string
	URL      string
	Headline string
}

type contacted struct {
	Name   string    `json:"name"`
	Status string    `json:"status"`
	Label  string    `json:"label,omitempty"`
	At     time.Time `json:"at"`
}

const (
	outcomeMessaged = "messaged"
	outcomeSkipped  = "skipped"
)

type outreachState struct {
	Profiles map[string]contacted `json:"profiles"`
}

// scrollStats counts scrolls that had to wait for the list to grow. A scroll
// that only loads after a second wait counts as a failure.
type scrollStats struct {
	attempts  int
	successes int
}

func (s *scrollStats) record(ok bool) {
	s.attempts++
	if ok {
		s.successes++
	}
}

func (s *scrollStats) rate() float64 {
	if s.attempts == 0 {
		return 1.0
	}
	return float64(s.successes) / float64(s.attempts)
}

func (t *OutreachTask) Run(ctx context.Context, env *Env) (runhistory.Metrics, error) {
	m := &runhistory.OutreachMetrics{AgentType: runhistory.AgentOutreach, ScrollSuccessRate: 1.0}

	if err := env.Human.Navigate(ctx, ConnectionsURL); err != nil {
		return m, err
	}
	if err := env.AwaitLogin(ctx); err != nil {
		return m, err
	}

	state := &outreachState{Profiles: map[string]contacted{}}
	loadDocument(ctx, env.Storage, outreachStatePath, state, env.Logger)
	if state.Profiles == nil {
		state.Profiles = map[string]contacted{}
	}

	maxMessages := env.Config.GetInt("outreach_agent.max_messages_per_run", 10)
	maxScrolls := env.Config.GetInt("limits.max_scrolls", 50)
	stats := &scrollStats{}
	checked := map[string]bool{}

	for scrolls := 0; ; scrolls++ {
		conns, cards, err := t.scan(ctx, env)
		if err != nil {
			return m, err
		}

		for _, c := range conns {
			if checked[c.URL] {
				continue
			}
			checked[c.URL] = true

			if err := ctx.Err(); err != nil {
				return m, err
			}
			if m.MessagesSent >= maxMessages {
				env.Logger.Info(ctx, "reached max messages for this run", map[string]interface{}{"max": maxMessages})
				return m, nil
			}

			err := t.reach(ctx, env, state, c, m)
			saveDocument(ctx, env.Storage, outreachStatePath, state, env.Logger)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return m, ctx.Err()
			case isStepFailure(err):
				env.Logger.Warn(ctx, "outreach step failed", map[string]interface{}{
					"profile": c.URL,
					"error":   err.Error(),
				})
			default:
				env.Logger.Warn(ctx, "profile failed", map[string]interface{}{
					"profile": c.URL,
					"error":   err.Error(),
				})
				m.Errors++
			}
		}

		if scrolls >= maxScrolls {
			break
		}
		more, err := t.scrollMore(ctx, env, cards, stats)
		m.ScrollSuccessRate = stats.rate()
		if err != nil {
			return m, err
		}
		if !more {
			break
		}
	}

	env.Logger.Info(ctx, "outreach run finished", map[string]interface{}{
		"profiles":       m.ProfilesProcessed,
		"messages":       m.MessagesSent,
		"scroll_success": m.ScrollSuccessRate,
		"errors":         m.Errors,
	})
	return m, nil
}

// scan reads the visible connection cards. It also returns the raw card
// count so scrolling can tell whether the list grew.
func (t *OutreachTask) scan(ctx context.Context, env *Env) ([]connection, int, error) {
	cards, err := env.Page.QueryAll(ctx, env.Selector("connection_card"))
	if err != nil {
		return nil, 0, err
	}

	var out []connection
	for _, card := range cards {
		link, found, err := card.Query(ctx, env.Selector("profile_link"))
		if err != nil || !found {
			continue
		}
		href, ok, err := link.Attribute(ctx, "href")
		if err != nil || !ok || !strings.Contains(href, "/in/") {
			continue
		}
		url := normalizeProfileURL(href)

		name := textOf(ctx, card, env.Selector("connection_name"))
		if len(name) < 2 {
			name = nameFromURL(url)
		}
		out = append(out, connection{
			Name:     name,
			URL:      url,
			Headline: textOf(ctx, card, env.Selector("connection_headline")),
		})
	}
	return out, len(cards), nil
}

// scrollMore scrolls once and waits timeouts.scroll_wait for new cards. When
// none arrive it waits once more; if the list still has not grown it is
// exhausted.
func (t *OutreachTask) scrollMore(ctx context.Context, env *Env, before int, stats *scrollStats) (bool, error) {
	wait := env.Config.GetMillis("timeouts.scroll_wait", 3000)
	if err := env.Human.Scroll(ctx, 800); err != nil {
		return false, err
	}

	for i := 0; i < 2; i++ {
		env.Human.Delay(wait, wait)
		cards, err := env.Page.QueryAll(ctx, env.Selector("connection_card"))
		if err != nil {
			return false, err
		}
		if len(cards) > before {
			stats.record(i == 0)
			return true, nil
		}
	}
	return false, nil
}

// reach classifies one connection and, when accepted, messages it.
func (t *OutreachTask) reach(ctx context.Context, env *Env, state *outreachState, c connection, m *runhistory.OutreachMetrics) error {
	if strings.TrimSuffix(c.URL, "/") == strings.TrimSuffix(env.Settings.SelfProfileURL, "/") {
		return nil
	}
	if _, done := state.Profiles[c.URL]; done {
		return nil
	}

	label, ok := t.accepts(ctx, env, c.Headline)
	if !ok {
		env.Logger.Info(ctx, "skipping connection outside target audience", map[string]interface{}{"name": c.Name})
		state.Profiles[c.URL] = contacted{Name: c.Name, Status: outcomeSkipped, Label: string(label), At: env.Now()}
		return nil
	}

	if err := env.Human.Navigate(ctx, c.URL); err != nil {
		return err
	}
	m.ProfilesProcessed++

	input, err := t.openChat(ctx, env)
	if err != nil {
		if errors.Is(err, errChatNotOpened) {
			m.ChatOpenFailed = true
		}
		return err
	}
	defer t.closeChat(ctx, env)

	if err := t.verifyIdentity(ctx, env, c.Name); err != nil {
		m.IdentityVerificationFailed = true
		return err
	}

	message := outreachMessage(env.Config.GetString("outreach_agent.message_template", defaultOutreach), c.Name)
	if err := env.Human.Type(ctx, input, message, true); err != nil {
		return err
	}
	if path := env.Config.GetString("outreach_agent.attachment_path", ""); path != "" {
		if err := t.attach(ctx, env, path); err != nil {
			m.FileUploadFailed = true
			return err
		}
	}
	if err := t.send(ctx, env, message); err != nil {
		if errors.Is(err, errMessageUnverified) {
			m.MessageVerificationFailed = true
		}
		return err
	}

	state.Profiles[c.URL] = contacted{Name: c.Name, Status: outcomeMessaged, Label: string(label), At: env.Now()}
	m.MessagesSent++
	env.Logger.Info(ctx, "message sent", map[string]interface{}{
		"name": c.Name,
		"sent": m.MessagesSent,
	})
	return env.Limiter.Wait(ctx, env.Progress)
}

// accepts classifies a headline against outreach_agent.accept_labels.
// Missing headlines and classifier failures are treated as general.
func (t *OutreachTask) accepts(ctx context.Context, env *Env, headline string) (classifier.Label, bool) {
	label := classifier.LabelGeneral
	if env.Classifier != nil && headline != "" {
		classified, err := env.Classifier.Classify(ctx, headline)
		if err != nil {
			env.Logger.Warn(ctx, "classification failed, assuming general", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			label = classified
		}
	}

	for _, allowed := range env.Config.GetStringSlice("outreach_agent.accept_labels", nil) {
		if classifier.ParseLabel(allowed) == label {
			return label, true
		}
	}
	return label, false
}

// openChat clicks Message and waits for the chat input, up to
// limits.chat_open_retries attempts.
func (t *OutreachTask) openChat(ctx context.Context, env *Env) (browser.Element, error) {
	attempts := env.Config.GetInt("limits.chat_open_retries", 3)
	if attempts < 1 {
		attempts = 1
	}
	wait := env.Config.GetMillis("timeouts.page_load", 5000)

	for i := 0; i < attempts; i++ {
		btn, found, err := env.Page.Query(ctx, env.Selector("message_button"))
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.New("message button not found")
		}
		if err := env.Human.Click(ctx, btn); err != nil {
			return nil, err
		}

		input, found, err := browser.WaitFor(ctx, env.Page, env.Selector("message_input"), wait)
		if err != nil {
			return nil, err
		}
		if found {
			return input, nil
		}
		env.Logger.Warn(ctx, "chat input did not appear", map[string]interface{}{
			"attempt":  i + 1,
			"attempts": attempts,
		})
	}
	return nil, fmt.Errorf("%w after %d attempts", errChatNotOpened, attempts)
}

// verifyIdentity polls the chat header timeouts.identity_poll_retries times
// for the expected name.
func (t *OutreachTask) verifyIdentity(ctx context.Context, env *Env, name string) error {
	polls := env.Config.GetInt("timeouts.identity_poll_retries", 15)

	var shown string
	for i := 0; i < polls; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if el, found, err := env.Page.Query(ctx, env.Selector("chat_title")); err == nil && found {
			if text, err := el.Text(ctx); err == nil {
				shown = firstLine(text)
				if samePerson(name, shown) {
					return nil
				}
			}
		}
		env.Human.Delay(300*time.Millisecond, 300*time.Millisecond)
	}
	return fmt.Errorf("%w: expected %q, saw %q", errIdentityMismatch, name, shown)
}

// attach uploads path and waits timeouts.file_upload_wait_ms for the
// attachment preview.
func (t *OutreachTask) attach(ctx context.Context, env *Env, path string) error {
	input, found, err := env.Page.Query(ctx, env.Selector("file_input"))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no file input", errUploadFailed)
	}
	if err := input.Upload(ctx, path); err != nil {
		return fmt.Errorf("%w: %v", errUploadFailed, err)
	}

	wait := env.Config.GetMillis("timeouts.file_upload_wait_ms", 5000)
	env.Human.Delay(wait, wait)
	if _, found, err := env.Page.Query(ctx, env.Selector("attachment_preview")); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("%w: no preview after %s", errUploadFailed, wait)
	}
	return nil
}

// send clicks Send, waits timeouts.message_send_wait and checks the message
// shows up as the last one in the conversation.
func (t *OutreachTask) send(ctx context.Context, env *Env, message string) error {
	btn, found, err := env.Page.Query(ctx, env.Selector("send_message_button"))
	if err != nil {
		return err
	}
	if !found {
		return errors.New("send button not found")
	}
	if err := env.Retry(ctx, func(ctx context.Context) error { return env.Human.Click(ctx, btn) }); err != nil {
		return err
	}

	wait := env.Config.GetMillis("timeouts.message_send_wait", 3000)
	env.Human.Delay(wait, wait)

	sent, err := env.Page.QueryAll(ctx, env.Selector("sent_message"))
	if err != nil {
		return err
	}
	if len(sent) > 0 {
		if text, err := sent[len(sent)-1].Text(ctx); err == nil && strings.Contains(text, firstLine(message)) {
			return nil
		}
	}
	return errMessageUnverified
}

func (t *OutreachTask) closeChat(ctx context.Context, env *Env) {
	btn, found, err := browser.QueryFirst(ctx, env.Page, env.Selectors("close_chat"))
	if err != nil || !found {
		return
	}
	if err := btn.Click(ctx); err != nil {
		env.Logger.Warn(ctx, "failed to close chat", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func outreachMessage(template, name string) string {
	first := "there"
	if fields := strings.Fields(name); len(fields) > 0 {
		first = fields[0]
	}
	return strings.ReplaceAll(template, "{first_name}", first)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// samePerson matches a chat header against the expected name: either
// contains the other, or the first names agree.
func samePerson(expected, shown string) bool {
	e := strings.ToLower(strings.TrimSpace(expected))
	s := strings.ToLower(strings.TrimSpace(shown))
	if e == "" || s == "" {
		return false
	}
	if strings.Contains(s, e) || strings.Contains(e, s) {
		return true
	}
	ef, sf := strings.Fields(e), strings.Fields(s)
	return ef[0] == sf[0]
}
