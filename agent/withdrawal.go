package agent

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/browser"
	"github.com/hairizuan-noorazman/linkedin-agent/configstore"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
)

// SentInvitationsURL lists pending invitations the user has sent.
const SentInvitationsURL = "https://www.linkedin.com/mynetwork/invitation-manager/sent/"

// WithdrawalTask withdraws sent invitations older than
// invite_withdrawal.min_age_days, oldest first.
type WithdrawalTask struct{}

func (t *WithdrawalTask) Kind() runhistory.AgentType {
	return runhistory.AgentInviteWithdrawal
}

func (t *WithdrawalTask) Limiter(base pacing.LimiterConfig, cfg *configstore.Store) pacing.LimiterConfig {
	delay := cfg.GetSeconds("invite_withdrawal.delay_between_withdrawals", 2)
	base.MinDelay = delay
	base.MaxDelay = 2 * delay
	return base
}

type sentInvite struct {
	Name string
	Age  int
	Card browser.Element
}

func (t *WithdrawalTask) Run(ctx context.Context, env *Env) (runhistory.Metrics, error) {
	m := &runhistory.WithdrawalMetrics{AgentType: runhistory.AgentInviteWithdrawal}

	if err := env.Human.Navigate(ctx, SentInvitationsURL); err != nil {
		return m, err
	}
	if err := env.AwaitLogin(ctx); err != nil {
		return m, err
	}
	if err := t.loadAll(ctx, env); err != nil {
		return m, err
	}

	invites, err := t.collect(ctx, env, m)
	if err != nil {
		return m, err
	}
	max := env.Config.GetInt("invite_withdrawal.max_withdrawals_per_run", 100)
	if len(invites) > max {
		invites = invites[:max]
	}
	env.Logger.Info(ctx, "invitations eligible for withdrawal", map[string]interface{}{
		"eligible": len(invites),
		"skipped":  m.Skipped,
	})

	for i, inv := range invites {
		if err := ctx.Err(); err != nil {
			return m, err
		}
		if err := t.withdraw(ctx, env, inv, m); err != nil {
			env.Logger.Warn(ctx, "withdrawal failed", map[string]interface{}{
				"name":  inv.Name,
				"error": err.Error(),
			})
			m.Errors++
		}
		if i < len(invites)-1 {
			if err := env.Limiter.Wait(ctx, env.Progress); err != nil {
				return m, err
			}
		}
	}

	env.Logger.Info(ctx, "withdrawal run finished", map[string]interface{}{
		"withdrawn":       m.Withdrawn,
		"dialog_timeouts": m.DialogTimeoutCount,
		"errors":          m.Errors,
	})
	return m, nil
}

// loadAll expands the list with "Show more" or scrolling until the card
// count stops changing.
func (t *WithdrawalTask) loadAll(ctx context.Context, env *Env) error {
	maxScrolls := env.Config.GetInt("limits.max_scrolls", 50)
	selector := env.Selector("sent_invitation")

	last := -1
	for i := 0; i < maxScrolls; i++ {
		cards, err := env.Page.QueryAll(ctx, selector)
		if err != nil {
			return err
		}
		if len(cards) == last {
			return nil
		}
		last = len(cards)

		more, found, err := browser.QueryFirst(ctx, env.Page, env.Selectors("show_more_btn"))
		if err != nil {
			return err
		}
		if found {
			if err := env.Human.Click(ctx, more); err != nil {
				return err
			}
		} else if err := env.Human.Scroll(ctx, 0); err != nil {
			return err
		}
		env.Human.Delay(time.Second, 2*time.Second)
	}
	return nil
}

func (t *WithdrawalTask) collect(ctx context.Context, env *Env, m *runhistory.WithdrawalMetrics) ([]sentInvite, error) {
	cards, err := env.Page.QueryAll(ctx, env.Selector("sent_invitation"))
	if err != nil {
		return nil, err
	}
	minAge := env.Config.GetInt("invite_withdrawal.min_age_days", 31)

	var out []sentInvite
	for _, card := range cards {
		name := textOf(ctx, card, env.Selector("invitation_name"))
		age, ok := ParseAge(textOf(ctx, card, env.Selector("invitation_time")))
		if !ok || age <= minAge {
			m.Skipped++
			continue
		}
		out = append(out, sentInvite{Name: name, Age: age, Card: card})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Age > out[j].Age
	})
	return out, nil
}

func textOf(ctx context.Context, q browser.Queryable, selector string) string {
	el, found, err := q.Query(ctx, selector)
	if err != nil || !found {
		return ""
	}
	text, err := el.Text(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (t *WithdrawalTask) withdraw(ctx context.Context, env *Env, inv sentInvite, m *runhistory.WithdrawalMetrics) error {
	btn, found, err := inv.Card.Query(ctx, env.Selector("withdraw_button"))
	if err != nil {
		return err
	}
	if !found {
		m.Skipped++
		return nil
	}
	if err := env.Retry(ctx, func(ctx context.Context) error { return env.Human.Click(ctx, btn) }); err != nil {
		return err
	}

	timeout := env.Config.GetMillis("invite_withdrawal.dialog_timeout_ms", 3000)
	dialog, found, err := browser.WaitFor(ctx, env.Page, env.Selector("withdraw_dialog"), timeout)
	if err != nil {
		return err
	}
	if !found {
		env.Logger.Warn(ctx, "withdraw dialog did not appear", map[string]interface{}{
			"name":    inv.Name,
			"timeout": timeout.String(),
		})
		m.DialogTimeoutCount++
		m.Errors++
		return nil
	}

	confirm, found, err := browser.QueryFirst(ctx, dialog, env.Selectors("withdraw_confirm"))
	if err != nil {
		return err
	}
	if !found {
		env.dismiss(ctx)
		m.Errors++
		return nil
	}
	if err := env.Human.Click(ctx, confirm); err != nil {
		return err
	}

	m.Withdrawn++
	env.Logger.Info(ctx, "invitation withdrawn", map[string]interface{}{
		"name":     inv.Name,
		"age_days": inv.Age,
	})
	return nil
}
