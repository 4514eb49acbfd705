package agent

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/browser"
	"github.com/hairizuan-noorazman/linkedin-agent/classifier"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
	"github.com/hairizuan-noorazman/linkedin-agent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selConnCard     = "li.mn-connection-card"
	selConnName     = ".mn-connection-card__name"
	selConnHeadline = ".mn-connection-card__occupation"
	selChatInput    = "div.msg-form__contenteditable"
	selChatTitle    = ".msg-overlay-bubble-header__title"
	selFileInput    = "input[type='file']"
	selPreview      = ".msg-form__attachments"
	selSendMessage  = "button.msg-form__send-button"
	selSentMessage  = ".msg-s-event-listitem__body"
	selCloseChat    = "button[aria-label='Close conversation']"
)

func connectionCard(name, slug, headline string) *browser.FakeElement {
	return &browser.FakeElement{
		Name: "card " + name,
		Children: map[string][]*browser.FakeElement{
			selLink:         {{Name: "link " + name, Attrs: map[string]string{"href": "/in/" + slug + "/"}}},
			selConnName:     {{Content: name}},
			selConnHeadline: {{Content: headline}},
		},
	}
}

// chat wires a message button that opens a chat titled with the name
// registered for the current profile URL, and a send button that posts
// whatever was typed.
type chat struct {
	input  *browser.FakeElement
	title  *browser.FakeElement
	send   *browser.FakeElement
	names  map[string]string
	opener *browser.FakeElement
}

func newChat(h *harness, names map[string]string) *chat {
	c := &chat{
		input: &browser.FakeElement{Name: "input"},
		title: &browser.FakeElement{Name: "title"},
		names: names,
	}
	c.opener = &browser.FakeElement{
		Name: "message",
		OnClick: func(p *browser.FakePage) {
			c.title.Content = c.names[p.Current] + "\nActive now"
			p.Remove(c.input)
			p.Remove(c.title)
			p.Add(selChatInput, c.input)
			p.Add(selChatTitle, c.title)
		},
	}
	c.send = &browser.FakeElement{
		Name: "send",
		OnClick: func(p *browser.FakePage) {
			p.Add(selSentMessage, &browser.FakeElement{Name: "sent", Content: c.input.Typed})
		},
	}
	closer := &browser.FakeElement{
		Name: "close",
		OnClick: func(p *browser.FakePage) {
			p.Remove(c.input)
			p.Remove(c.title)
		},
	}
	h.page.Add(selMessage, c.opener)
	h.page.Add(selSendMessage, c.send)
	h.page.Add(selCloseChat, closer)
	return c
}

func loadOutreachState(t *testing.T, h *harness) outreachState {
	var state outreachState
	require.NoError(t, json.Unmarshal([]byte(testutil.ReadFixture(t, h.storage, outreachStatePath)), &state))
	return state
}

func countSleeps(sleeps []time.Duration, d time.Duration) int {
	n := 0
	for _, s := range sleeps {
		if s == d {
			n++
		}
	}
	return n
}

func TestOutreachTask_MessagesConnections(t *testing.T) {
	h := newHarness(t)
	h.page.Add(selConnCard,
		connectionCard("Jane Doe", "jane-doe", "Partner at Doe & Co"),
		connectionCard("John Roe", "john-roe", "Associate"),
	)
	c := newChat(h, map[string]string{
		"https://www.linkedin.com/in/jane-doe/": "Jane Doe",
		"https://www.linkedin.com/in/john-roe/": "John Roe",
	})

	task := &OutreachTask{}
	m, err := task.Run(context.Background(), h.env(t, task, nil))
	require.NoError(t, err)

	metrics := m.(*runhistory.OutreachMetrics)
	assert.Equal(t, 2, metrics.MessagesSent)
	assert.Equal(t, 2, metrics.ProfilesProcessed)
	assert.Equal(t, 0, metrics.Errors)
	assert.Equal(t, 1.0, metrics.ScrollSuccessRate)
	assert.False(t, metrics.ChatOpenFailed)
	assert.False(t, metrics.IdentityVerificationFailed)
	assert.False(t, metrics.MessageVerificationFailed)
	assert.Equal(t, 2, c.send.Clicks)
	assert.Contains(t, c.input.Typed, "Hi John,")

	state := loadOutreachState(t, h)
	require.Contains(t, state.Profiles, "https://www.linkedin.com/in/jane-doe/")
	assert.Equal(t, outcomeMessaged, state.Profiles["https://www.linkedin.com/in/jane-doe/"].Status)
	assert.Equal(t, testNow, state.Profiles["https://www.linkedin.com/in/john-roe/"].At)
}

func TestOutreachTask_SkipsKnownAndUnwantedConnections(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFixture(t, h.storage, outreachStatePath, `{
		"profiles": {"https://www.linkedin.com/in/jane-doe/": {"name": "Jane Doe", "status": "messaged"}}
	}`)
	h.page.Add(selConnCard,
		connectionCard("Jane Doe", "jane-doe", "Partner"),
		connectionCard("Sam Poe", "sam-poe", "Chef"),
		connectionCard("Me", "me", "Founder"),
	)
	c := newChat(h, nil)
	cls := &stubClassifier{label: classifier.LabelOther}

	task := &OutreachTask{}
	m, err := task.Run(context.Background(), h.env(t, task, cls))
	require.NoError(t, err)

	metrics := m.(*runhistory.OutreachMetrics)
	assert.Equal(t, 0, metrics.MessagesSent)
	assert.Equal(t, 0, c.opener.Clicks)
	assert.Equal(t, []string{"Chef"}, cls.seen)

	state := loadOutreachState(t, h)
	assert.Equal(t, outcomeSkipped, state.Profiles["https://www.linkedin.com/in/sam-poe/"].Status)
	assert.Equal(t, string(classifier.LabelOther), state.Profiles["https://www.linkedin.com/in/sam-poe/"].Label)
}

func TestOutreachTask_StepFailuresSetFlags(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, h *harness, c *chat)
		check func(t *testing.T, h *harness, c *chat, m *runhistory.OutreachMetrics)
	}{
		{
			name: "chat never opens",
			setup: func(t *testing.T, h *harness, c *chat) {
				h.set(t, "timeouts.page_load", 20)
				h.set(t, "limits.chat_open_retries", 2)
				c.opener.OnClick = nil
			},
			check: func(t *testing.T, h *harness, c *chat, m *runhistory.OutreachMetrics) {
				assert.True(t, m.ChatOpenFailed)
				assert.Equal(t, 2, c.opener.Clicks)
			},
		},
		{
			name: "chat opens for someone else",
			setup: func(t *testing.T, h *harness, c *chat) {
				h.set(t, "timeouts.identity_poll_retries", 4)
				c.names = map[string]string{"https://www.linkedin.com/in/jane-doe/": "Bob Smith"}
			},
			check: func(t *testing.T, h *harness, c *chat, m *runhistory.OutreachMetrics) {
				assert.True(t, m.IdentityVerificationFailed)
				assert.Equal(t, 4, countSleeps(h.sleeper.Sleeps(), 300*time.Millisecond))
				assert.Equal(t, 0, c.send.Clicks)
			},
		},
		{
			name: "sent message never shows",
			setup: func(t *testing.T, h *harness, c *chat) {
				h.set(t, "timeouts.message_send_wait", 4321)
				c.send.OnClick = nil
			},
			check: func(t *testing.T, h *harness, c *chat, m *runhistory.OutreachMetrics) {
				assert.True(t, m.MessageVerificationFailed)
				assert.Equal(t, 1, countSleeps(h.sleeper.Sleeps(), 4321*time.Millisecond))
			},
		},
		{
			name: "attachment preview missing",
			setup: func(t *testing.T, h *harness, c *chat) {
				h.set(t, "outreach_agent.attachment_path", "/tmp/report.pdf")
				h.set(t, "timeouts.file_upload_wait_ms", 7000)
				h.page.Add(selFileInput, &browser.FakeElement{Name: "file"})
			},
			check: func(t *testing.T, h *harness, c *chat, m *runhistory.OutreachMetrics) {
				assert.True(t, m.FileUploadFailed)
				assert.Equal(t, 1, countSleeps(h.sleeper.Sleeps(), 7*time.Second))
				assert.Equal(t, 0, c.send.Clicks)
			},
		},
		{
			name: "no file input",
			setup: func(t *testing.T, h *harness, c *chat) {
				h.set(t, "outreach_agent.attachment_path", "/tmp/report.pdf")
			},
			check: func(t *testing.T, h *harness, c *chat, m *runhistory.OutreachMetrics) {
				assert.True(t, m.FileUploadFailed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.page.Add(selConnCard, connectionCard("Jane Doe", "jane-doe", "Counsel"))
			c := newChat(h, map[string]string{"https://www.linkedin.com/in/jane-doe/": "Jane Doe"})
			tt.setup(t, h, c)

			task := &OutreachTask{}
			m, err := task.Run(context.Background(), h.env(t, task, nil))
			require.NoError(t, err)

			metrics := m.(*runhistory.OutreachMetrics)
			assert.Equal(t, 0, metrics.MessagesSent)
			assert.Equal(t, 0, metrics.Errors)
			assert.True(t, h.log.HasMessage("outreach step failed"))
			tt.check(t, h, c, metrics)

			// failed profiles are retried on the next run
			state := loadOutreachState(t, h)
			assert.NotContains(t, state.Profiles, "https://www.linkedin.com/in/jane-doe/")
		})
	}
}

func TestOutreachTask_UploadsAttachment(t *testing.T) {
	h := newHarness(t)
	h.set(t, "outreach_agent.attachment_path", "/tmp/report.pdf")
	file := &browser.FakeElement{Name: "file"}
	h.page.Add(selFileInput, file)
	h.page.Add(selPreview, &browser.FakeElement{Name: "preview"})
	h.page.Add(selConnCard, connectionCard("Jane Doe", "jane-doe", "Counsel"))
	newChat(h, map[string]string{"https://www.linkedin.com/in/jane-doe/": "Jane Doe"})

	task := &OutreachTask{}
	m, err := task.Run(context.Background(), h.env(t, task, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, m.(*runhistory.OutreachMetrics).MessagesSent)
	assert.Equal(t, []string{"/tmp/report.pdf"}, file.Uploaded)
}

func TestOutreachTask_MaxMessagesPerRun(t *testing.T) {
	h := newHarness(t)
	h.set(t, "outreach_agent.max_messages_per_run", 1)
	h.page.Add(selConnCard,
		connectionCard("Jane Doe", "jane-doe", "Counsel"),
		connectionCard("John Roe", "john-roe", "Counsel"),
	)
	newChat(h, map[string]string{
		"https://www.linkedin.com/in/jane-doe/": "Jane Doe",
		"https://www.linkedin.com/in/john-roe/": "John Roe",
	})

	task := &OutreachTask{}
	m, err := task.Run(context.Background(), h.env(t, task, nil))
	require.NoError(t, err)

	assert.Equal(t, 1, m.(*runhistory.OutreachMetrics).MessagesSent)
	assert.True(t, h.log.HasMessage("reached max messages for this run"))
}

// hookSleeper records sleeps and runs hook on every sleep of length on.
type hookSleeper struct {
	pacing.RecordingSleeper
	on    time.Duration
	calls int
	hook  func(call int)
}

func (s *hookSleeper) Sleep(d time.Duration) {
	s.RecordingSleeper.Sleep(d)
	if d == s.on {
		s.calls++
		s.hook(s.calls)
	}
}

func TestOutreachTask_ScrollSuccessRate(t *testing.T) {
	h := newHarness(t)
	h.set(t, "timeouts.scroll_wait", 2345)
	h.page.Add(selConnCard, connectionCard("A One", "a-one", "Chef"))

	sleeper := &hookSleeper{
		on: 2345 * time.Millisecond,
		hook: func(call int) {
			switch call {
			case 1:
				// first scroll loads within the wait
				h.page.Add(selConnCard, connectionCard("B Two", "b-two", "Chef"))
			case 3:
				// second scroll only loads after a second wait
				h.page.Add(selConnCard, connectionCard("C Three", "c-three", "Chef"))
			}
		},
	}
	h.opts = []pacing.Option{pacing.WithSleeper(sleeper), pacing.WithRand(rand.New(rand.NewSource(7)))}
	cls := &stubClassifier{label: classifier.LabelOther}

	task := &OutreachTask{}
	m, err := task.Run(context.Background(), h.env(t, task, cls))
	require.NoError(t, err)

	assert.Equal(t, 0.5, m.(*runhistory.OutreachMetrics).ScrollSuccessRate)
	assert.Equal(t, 5, sleeper.calls)
	assert.Equal(t, []string{"Chef", "Chef", "Chef"}, cls.seen)
}

func TestSamePerson(t *testing.T) {
	tests := []struct {
		expected string
		shown    string
		want     bool
	}{
		{"Jane Doe", "Jane Doe", true},
		{"Jane Doe", "jane doe, Esq.", true},
		{"Jane Doe", "Jane D.", true},
		{"Jane Doe", "John Doe", false},
		{"Jane Doe", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.expected+" vs "+tt.shown, func(t *testing.T) {
			assert.Equal(t, tt.want, samePerson(tt.expected, tt.shown))
		})
	}
}

func TestOutreachMessage(t *testing.T) {
	assert.Equal(t, "Hi Jane, hello", outreachMessage("Hi {first_name}, hello", "Jane Doe"))
	assert.Equal(t, "Hi there, hello", outreachMessage("Hi {first_name}, hello", ""))
}
