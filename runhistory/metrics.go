package runhistory

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Metrics is the typed form of a run's counters. Each agent type has its own
// struct; Decode picks it from the agent_type tag.
type Metrics interface {
	Kind() AgentType
}

// OutreachMetrics are reported by the connection/message outreach agent.
type OutreachMetrics struct {
	AgentType                  AgentType `mapstructure:"agent_type"`
	ScrollSuccessRate          float64   `mapstructure:"scroll_success_rate"`
	MessageVerificationFailed  bool      `mapstructure:"message_verification_failed"`
	ChatOpenFailed             bool      `mapstructure:"chat_open_failed"`
	IdentityVerificationFailed bool      `mapstructure:"identity_verification_failed"`
	FileUploadFailed           bool      `mapstructure:"file_upload_failed"`
	Errors                     int       `mapstructure:"errors"`
	ProfilesProcessed          int       `mapstructure:"profiles_processed"`
	MessagesSent               int       `mapstructure:"messages_sent"`
}

func (m *OutreachMetrics) Kind() AgentType { return AgentOutreach }

// WithdrawalMetrics are reported by the sent-invitation withdrawal agent.
type WithdrawalMetrics struct {
	AgentType          AgentType `mapstructure:"agent_type"`
	DialogTimeoutCount int       `mapstructure:"dialog_timeout_count"`
	Withdrawn          int       `mapstructure:"withdrawn"`
	Skipped            int       `mapstructure:"skipped"`
	Errors             int       `mapstructure:"errors"`
}

func (m *WithdrawalMetrics) Kind() AgentType { return AgentInviteWithdrawal }

// NotificationMetrics are reported by the agent that invites people who
// engaged with the user's notifications.
type NotificationMetrics struct {
	AgentType              AgentType `mapstructure:"agent_type"`
	NotificationsProcessed int       `mapstructure:"notifications_processed"`
	InvitesSent            int       `mapstructure:"invites_sent"`
	AlreadyConnected       int       `mapstructure:"already_connected"`
	Skipped                int       `mapstructure:"skipped"`
	Errors                 int       `mapstructure:"errors"`
}

func (m *NotificationMetrics) Kind() AgentType { return AgentNotification }

// GenericMetrics covers agents with no tuned parameters.
type GenericMetrics struct {
	AgentType AgentType              `mapstructure:"agent_type"`
	Actions   int                    `mapstructure:"actions"`
	Errors    int                    `mapstructure:"errors"`
	Extra     map[string]interface{} `mapstructure:",remain"`
}

func (m *GenericMetrics) Kind() AgentType { return m.AgentType }

// Decode converts a free-form metrics map into the struct for its agent type.
// Unknown keys are ignored; absent keys keep their defaults, and an absent
// scroll_success_rate counts as fully successful.
func Decode(raw map[string]interface{}) (Metrics, error) {
	agentType := DefaultAgentType
	if v, ok := raw["agent_type"].(string); ok && v != "" {
		agentType = AgentType(v)
	}

	var target Metrics
	switch agentType {
	case AgentOutreach:
		target = &OutreachMetrics{ScrollSuccessRate: 1.0}
	case AgentInviteWithdrawal:
		target = &WithdrawalMetrics{}
	case AgentNotification:
		target = &NotificationMetrics{}
	default:
		target = &GenericMetrics{}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       countHook,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s metrics: %w", agentType, err)
	}

	switch m := target.(type) {
	case *OutreachMetrics:
		m.AgentType = AgentOutreach
	case *WithdrawalMetrics:
		m.AgentType = AgentInviteWithdrawal
	case *NotificationMetrics:
		m.AgentType = AgentNotification
	case *GenericMetrics:
		m.AgentType = agentType
	}
	return target, nil
}

// countHook lets list-valued counters (older runs logged "errors" as a list of
// messages) decode into integer fields as their length.
func countHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	if from.Kind() == reflect.Slice {
		return reflect.ValueOf(data).Len(), nil
	}
	return data, nil
}

// Encode flattens typed metrics into the map form stored in history.
func Encode(m Metrics) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if g, ok := m.(*GenericMetrics); ok {
		for k, v := range g.Extra {
			out[k] = v
		}
		out["actions"] = g.Actions
		out["errors"] = g.Errors
	} else if err := mapstructure.Decode(m, &out); err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}
	out["agent_type"] = string(m.Kind())
	return out, nil
}
