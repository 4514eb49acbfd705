package agent

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/hairizuan-noorazman/linkedin-agent/browser"
	"github.com/hairizuan-noorazman/linkedin-agent/classifier"
	"github.com/hairizuan-noorazman/linkedin-agent/configstore"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
)

const (
	// NotificationsURL lists the user's notifications.
	NotificationsURL = "https://www.linkedin.com/notifications/"

	linkedInBaseURL       = "https://www.linkedin.com"
	notificationStatePath = "notification_history.json"
)

var engagementKeywords = []string{
	"liked your", "loves your", "loved your", "celebrated your",
	"supported your", "found your", "reacted to", "commented on",
	"mentioned you", "shared your", "reposted your", "replied to",
	"viewed your profile", "and others", "comment that mentioned you",
}

var profileLinkNoise = []string{"see all", "unread", "notification settings"}

// NotificationTask sends connection invites to people who engaged with the
// user's posts, as found on the notifications page.
type NotificationTask struct{}

func (t *NotificationTask) Kind() runhistory.AgentType {
	return runhistory.AgentNotification
}

// Limiter spaces invites by notification_agent.delay_between_invites, up to
// three times that.
func (t *NotificationTask) Limiter(base pacing.LimiterConfig, cfg *configstore.Store) pacing.LimiterConfig {
	delay := cfg.GetSeconds("notification_agent.delay_between_invites", 5)
	base.MinDelay = delay
	base.MaxDelay = 3 * delay
	return base
}

type profileLink struct {
	Name string
	URL  string
}

type engagement struct {
	Text     string
	Type     string
	Profiles []profileLink
}

type invitedProfile struct {
	Name           string    `json:"name"`
	InvitedAt      time.Time `json:"invited_at"`
	EngagementType string    `json:"engagement_type"`
}

type notificationState struct {
	InvitedProfiles  map[string]invitedProfile `json:"invited_profiles"`
	AlreadyConnected []string                  `json:"already_connected"`
	SkippedProfiles  []string                  `json:"skipped_profiles"`
	DailyInvites     map[string]int            `json:"daily_invites"`
}

func (s *notificationState) seen(url string) (invited, connected bool) {
	if _, ok := s.InvitedProfiles[url]; ok {
		return true, false
	}
	for _, u := range s.AlreadyConnected {
		if u == url {
			return false, true
		}
	}
	return false, false
}

type connectionStatus int

const (
	statusUnknown connectionStatus = iota
	statusCanConnect
	statusConnected
	statusPending
)

func (t *NotificationTask) Run(ctx context.Context, env *Env) (runhistory.Metrics, error) {
	m := &runhistory.NotificationMetrics{AgentType: runhistory.AgentNotification}

	if err := env.Human.Navigate(ctx, NotificationsURL); err != nil {
		return m, err
	}
	if err := env.AwaitLogin(ctx); err != nil {
		return m, err
	}

	state := &notificationState{
		InvitedProfiles: map[string]invitedProfile{},
		DailyInvites:    map[string]int{},
	}
	loadDocument(ctx, env.Storage, notificationStatePath, state, env.Logger)
	if state.InvitedProfiles == nil {
		state.InvitedProfiles = map[string]invitedProfile{}
	}
	if state.DailyInvites == nil {
		state.DailyInvites = map[string]int{}
	}

	if err := t.loadMore(ctx, env); err != nil {
		return m, err
	}
	engagements, err := t.extract(ctx, env)
	if err != nil {
		return m, err
	}

	maxInvites := env.Config.GetInt("notification_agent.max_invites_per_run", 50)
	dailyLimit := env.Config.GetInt("notification_agent.daily_invite_limit", 10)
	today := env.Now().Format("2006-01-02")

	for _, e := range engagements {
		for _, p := range e.Profiles {
			if err := ctx.Err(); err != nil {
				return m, err
			}
			if m.InvitesSent >= maxInvites {
				env.Logger.Info(ctx, "reached max invites for this run", map[string]interface{}{"max": maxInvites})
				return m, nil
			}
			if state.DailyInvites[today] >= dailyLimit {
				env.Logger.Info(ctx, "reached daily invite limit", map[string]interface{}{"limit": dailyLimit})
				return m, nil
			}
			if p.URL == env.Settings.SelfProfileURL {
				continue
			}
			if invited, connected := state.seen(p.URL); invited || connected {
				if connected {
					m.AlreadyConnected++
				}
				continue
			}

			err := t.handleProfile(ctx, env, state, e, p, m, today)
			m.NotificationsProcessed++
			saveDocument(ctx, env.Storage, notificationStatePath, state, env.Logger)
			if errors.Is(err, ErrWeeklyLimit) {
				return m, err
			}
			if err != nil {
				env.Logger.Warn(ctx, "profile failed", map[string]interface{}{
					"profile": p.URL,
					"error":   err.Error(),
				})
				m.Errors++
			}
		}
	}
	return m, nil
}

func (t *NotificationTask) handleProfile(ctx context.Context, env *Env, state *notificationState, e engagement, p profileLink, m *runhistory.NotificationMetrics, today string) error {
	status, err := t.status(ctx, env, p.URL)
	if err != nil {
		return err
	}

	switch status {
	case statusConnected:
		env.Logger.Info(ctx, "already connected", map[string]interface{}{"name": p.Name})
		state.AlreadyConnected = append(state.AlreadyConnected, p.URL)
		m.AlreadyConnected++
		return nil
	case statusCanConnect:
	default:
		return nil
	}

	ok, err := t.accepts(ctx, env)
	if err != nil {
		return err
	}
	if !ok {
		env.Logger.Info(ctx, "skipping profile outside target audience", map[string]interface{}{"name": p.Name})
		state.SkippedProfiles = append(state.SkippedProfiles, p.URL)
		m.Skipped++
		return nil
	}

	sent, err := t.invite(ctx, env)
	if err != nil {
		return err
	}
	if !sent {
		state.SkippedProfiles = append(state.SkippedProfiles, p.URL)
		m.Errors++
		return nil
	}

	state.InvitedProfiles[p.URL] = invitedProfile{
		Name:           p.Name,
		InvitedAt:      env.Now(),
		EngagementType: e.Type,
	}
	state.DailyInvites[today]++
	m.InvitesSent++
	env.Logger.Info(ctx, "invite sent", map[string]interface{}{
		"name":       p.Name,
		"engagement": e.Type,
		"sent":       m.InvitesSent,
	})
	return env.Limiter.Wait(ctx, env.Progress)
}

// loadMore scrolls until the number of cards stops growing.
func (t *NotificationTask) loadMore(ctx context.Context, env *Env) error {
	attempts := env.Config.GetInt("notification_agent.scroll_attempts", 15)
	selector := env.Selector("notification_card")

	last := -1
	for i := 0; i < attempts; i++ {
		cards, err := env.Page.QueryAll(ctx, selector)
		if err != nil {
			return err
		}
		if len(cards) == last {
			break
		}
		last = len(cards)
		if err := env.Human.Scroll(ctx, 1000); err != nil {
			return err
		}
		env.Human.Delay(1500*time.Millisecond, 3*time.Second)
	}
	return nil
}

func (t *NotificationTask) extract(ctx context.Context, env *Env) ([]engagement, error) {
	cards, err := env.Page.QueryAll(ctx, env.Selector("notification_card"))
	if err != nil {
		return nil, err
	}
	limit := env.Config.GetInt("notification_agent.max_notifications_per_run", 100)
	if len(cards) > limit {
		cards = cards[:limit]
	}

	var out []engagement
	for i, card := range cards {
		text, err := card.Text(ctx)
		if err != nil {
			env.Logger.Warn(ctx, "failed to read notification", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		lower := strings.ToLower(text)
		if !isEngagement(lower) {
			continue
		}
		profiles, err := profileLinks(ctx, card, env.Selector("profile_link"))
		if err != nil || len(profiles) == 0 {
			continue
		}
		out = append(out, engagement{
			Text:     text,
			Type:     engagementType(lower),
			Profiles: profiles,
		})
	}

	env.Logger.Info(ctx, "extracted engagement notifications", map[string]interface{}{
		"cards":       len(cards),
		"engagements": len(out),
	})
	return out, nil
}

func isEngagement(lower string) bool {
	for _, k := range engagementKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func engagementType(lower string) string {
	switch {
	case strings.Contains(lower, "comment that mentioned you"):
		return "third_party_mention"
	case strings.Contains(lower, "viewed your profile"):
		return "viewed"
	case strings.Contains(lower, "loved"):
		return "loved"
	case strings.Contains(lower, "liked"):
		return "liked"
	case strings.Contains(lower, "commented"):
		return "commented"
	case strings.Contains(lower, "mentioned"):
		return "mentioned"
	case strings.Contains(lower, "reacted"):
		return "reacted"
	case strings.Contains(lower, "shared"), strings.Contains(lower, "reposted"):
		return "shared"
	}
	return "engaged"
}

func profileLinks(ctx context.Context, card browser.Element, selector string) ([]profileLink, error) {
	links, err := card.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []profileLink
	for _, link := range links {
		href, ok, err := link.Attribute(ctx, "href")
		if err != nil || !ok || !strings.Contains(href, "/in/") {
			continue
		}
		name, _ := link.Text(ctx)
		name = strings.TrimSpace(name)
		if isNoise(name) {
			continue
		}

		url := normalizeProfileURL(href)
		if seen[url] {
			continue
		}
		seen[url] = true

		if len(name) < 2 {
			name = nameFromURL(url)
		}
		out = append(out, profileLink{Name: name, URL: url})
	}
	return out, nil
}

func isNoise(name string) bool {
	lower := strings.ToLower(name)
	for _, n := range profileLinkNoise {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func normalizeProfileURL(href string) string {
	if !strings.HasPrefix(href, "http") {
		href = linkedInBaseURL + href
	}
	if i := strings.Index(href, "?"); i >= 0 {
		href = href[:i]
	}
	return href
}

// nameFromURL turns ".../in/jane-doe/" into "Jane Doe".
func nameFromURL(url string) string {
	slug := url[strings.LastIndex(url, "/in/")+len("/in/"):]
	slug = strings.Trim(slug, "/")
	if i := strings.Index(slug, "/"); i >= 0 {
		slug = slug[:i]
	}

	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func (t *NotificationTask) status(ctx context.Context, env *Env, url string) (connectionStatus, error) {
	if err := env.Human.Navigate(ctx, url); err != nil {
		return statusUnknown, err
	}

	if _, found, err := browser.QueryFirst(ctx, env.Page, env.Selectors("connect_button")); err != nil {
		return statusUnknown, err
	} else if found {
		return statusCanConnect, nil
	}
	if _, found, err := env.Page.Query(ctx, env.Selector("message_button")); err != nil {
		return statusUnknown, err
	} else if found {
		return statusConnected, nil
	}
	if _, found, err := env.Page.Query(ctx, env.Selector("pending_button")); err != nil {
		return statusUnknown, err
	} else if found {
		return statusPending, nil
	}
	return statusUnknown, nil
}

// accepts classifies the open profile's headline against
// notification_agent.accept_labels. Without a classifier or a headline
// every profile is accepted.
func (t *NotificationTask) accepts(ctx context.Context, env *Env) (bool, error) {
	if env.Classifier == nil {
		return true, nil
	}
	el, found, err := env.Page.Query(ctx, env.Selector("profile_headline"))
	if err != nil || !found {
		return true, err
	}
	headline, err := el.Text(ctx)
	if err != nil {
		return true, err
	}

	label, err := env.Classifier.Classify(ctx, headline)
	if err != nil {
		return false, err
	}
	for _, allowed := range env.Config.GetStringSlice("notification_agent.accept_labels", nil) {
		if classifier.ParseLabel(allowed) == label {
			return true, nil
		}
	}
	return false, nil
}

// invite clicks Connect and sends without a note. It reports false when the
// flow could not be completed on this profile.
func (t *NotificationTask) invite(ctx context.Context, env *Env) (bool, error) {
	btn, found, err := browser.QueryFirst(ctx, env.Page, env.Selectors("connect_button"))
	if err != nil || !found {
		return false, err
	}
	if err := env.Retry(ctx, func(ctx context.Context) error { return env.Human.Click(ctx, btn) }); err != nil {
		return false, err
	}
	env.Human.Delay(2*time.Second, 2*time.Second)

	send, found, err := browser.QueryFirst(ctx, env.Page, env.Selectors("send_without_note"))
	if err != nil {
		return false, err
	}
	if found {
		if err := env.Human.Click(ctx, send); err != nil {
			return false, err
		}
		return true, nil
	}

	if _, limited, err := env.Page.Query(ctx, env.Selector("weekly_limit_notice")); err == nil && limited {
		env.Logger.Warn(ctx, "weekly invitation limit reached", nil)
		return false, ErrWeeklyLimit
	}
	env.dismiss(ctx)
	return false, nil
}
