package configstore

// DefaultTree is the document used when no config file exists yet.
func DefaultTree() map[string]interface{} {
	return map[string]interface{}{
		"timeouts": map[string]interface{}{
			"page_load":             5000,
			"scroll_wait":           3000,
			"message_send_wait":     3000,
			"identity_poll_retries": 15,
			"file_upload_wait_ms":   5000,
			"login_wait_s":          300,
		},
		"selectors": map[string]interface{}{
			"notification_card": "div.nt-card, article.nt-card",
			"profile_link":      "a[href*='/in/']",
			"profile_headline":  "div.text-body-medium",
			"connect_button": []interface{}{
				"button[aria-label*='Invite'][aria-label*='connect']",
				"div.pvs-profile-actions button[aria-label*='Connect with']",
			},
			"message_button": "button[aria-label^='Message']",
			"pending_button": "button[aria-label^='Pending']",
			"send_without_note": []interface{}{
				"button[aria-label='Send without a note']",
				"button[aria-label='Send now']",
			},
			"weekly_limit_notice": "div.ip-fuse-limit-alert",
			"dismiss_button":      "button[aria-label='Dismiss']",
			"sent_invitation":     "li.invitation-card",
			"invitation_name":     ".invitation-card__title",
			"invitation_time":     "time.time-badge",
			"withdraw_button":     "button[aria-label^='Withdraw']",
			"withdraw_dialog":     "div[role='alertdialog'], dialog[data-testid='dialog']",
			"withdraw_confirm": []interface{}{
				"button.artdeco-modal__confirm-dialog-btn.artdeco-button--primary",
				"button.artdeco-button--primary",
			},
			"show_more_btn": []interface{}{
				"button.scaffold-finite-scroll__load-button",
				"button[aria-label*='Load more']",
			},
			"connection_card":     "li.mn-connection-card",
			"connection_name":     ".mn-connection-card__name",
			"connection_headline": ".mn-connection-card__occupation",
			"message_input":       "div.msg-form__contenteditable",
			"chat_title":          ".msg-overlay-bubble-header__title",
			"file_input":          "input[type='file']",
			"attachment_preview":  ".msg-form__attachments",
			"send_message_button": "button.msg-form__send-button",
			"sent_message":        ".msg-s-event-listitem__body",
			"close_chat": []interface{}{
				"button[aria-label='Close conversation']",
				"button[data-control-name='overlay.close_conversation_window']",
			},
		},
		"limits": map[string]interface{}{
			"max_scrolls":             50,
			"max_retries":             2,
			"chat_open_retries":       3,
			"max_actions_per_session": 50,
			"max_actions_per_minute":  0,
		},
		"rate_limiter": map[string]interface{}{
			"min_delay":        5,
			"max_delay":        15,
			"long_pause_every": 3,
			"long_pause_min":   20,
			"long_pause_max":   40,
		},
		"invite_withdrawal": map[string]interface{}{
			"dialog_timeout_ms":       3000,
			"min_age_days":            31,
			"max_withdrawals_per_run": 100,
		},
		"outreach_agent": map[string]interface{}{
			"max_messages_per_run": 10,
			"accept_labels":        []interface{}{"practicing", "general"},
			"message_template":     "Hi {first_name},\n\nThank you for connecting! I look forward to following your work.\n\nBest regards",
			"attachment_path":      "",
		},
		"notification_agent": map[string]interface{}{
			"delay_between_invites":     5,
			"max_invites_per_run":       50,
			"daily_invite_limit":        10,
			"max_notifications_per_run": 100,
			"scroll_attempts":           15,
			"accept_labels":             []interface{}{"practicing", "general"},
		},
	}
}
