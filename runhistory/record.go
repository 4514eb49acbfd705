package runhistory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxRuns is the number of most recent runs a store retains.
const MaxRuns = 50

// AgentType tags which workflow produced a run.
type AgentType string

const (
	AgentOutreach         AgentType = "outreach_agent"
	AgentInviteWithdrawal AgentType = "invite_withdrawal"
	AgentNotification     AgentType = "notification_agent"
	AgentEngagement       AgentType = "engagement_agent"
	AgentComment          AgentType = "comment_agent"
	AgentSearch           AgentType = "search_agent"
)

// DefaultAgentType is assumed for records logged before runs were tagged.
const DefaultAgentType = AgentOutreach

func (a AgentType) IsValid() bool {
	switch a {
	case AgentOutreach, AgentInviteWithdrawal, AgentNotification,
		AgentEngagement, AgentComment, AgentSearch:
		return true
	}
	return false
}

// RunRecord is one completed agent run. Records are never modified after
// they are logged.
type RunRecord struct {
	ID        uuid.UUID              `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics"`

	// rawTimestamp holds a timestamp that could not be parsed so that it is
	// written back unchanged.
	rawTimestamp string
}

// AgentType returns the record's agent tag, defaulting untagged records.
func (r *RunRecord) AgentType() AgentType {
	if v, ok := r.Metrics["agent_type"].(string); ok && v != "" {
		return AgentType(v)
	}
	return DefaultAgentType
}

// Typed decodes the free-form metrics into the struct for its agent type.
func (r *RunRecord) Typed() (Metrics, error) {
	return Decode(r.Metrics)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts both RFC 3339 timestamps and the zone-less ISO
// timestamps found in older history files. A timestamp in any other form
// leaves Timestamp zero and is kept as text.
func (r *RunRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string                 `json:"id"`
		Timestamp string                 `json:"timestamp"`
		Metrics   map[string]interface{} `json:"metrics"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.ID != "" {
		id, err := uuid.Parse(raw.ID)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", raw.ID, err)
		}
		r.ID = id
	}

	if ts, ok := parseTimestamp(raw.Timestamp); ok {
		r.Timestamp = ts
	} else {
		r.rawTimestamp = raw.Timestamp
	}

	r.Metrics = raw.Metrics
	if r.Metrics == nil {
		r.Metrics = map[string]interface{}{}
	}
	return nil
}

// MarshalJSON writes an unparsed timestamp back as it was read.
func (r RunRecord) MarshalJSON() ([]byte, error) {
	var ts interface{} = r.Timestamp
	if r.Timestamp.IsZero() && r.rawTimestamp != "" {
		ts = r.rawTimestamp
	}
	return json.Marshal(struct {
		ID        uuid.UUID              `json:"id"`
		Timestamp interface{}            `json:"timestamp"`
		Metrics   map[string]interface{} `json:"metrics"`
	}{r.ID, ts, r.Metrics})
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Store is an append-only, size-capped log of runs in completion order.
type Store interface {
	// LogRun stamps metrics with the current time and appends them. The
	// returned record is valid even when persisting it failed.
	LogRun(ctx context.Context, metrics map[string]interface{}) (*RunRecord, error)

	// LoadHistory returns retained runs oldest first. Unreadable storage
	// yields an empty slice.
	LoadHistory(ctx context.Context) []*RunRecord
}

// LogMetrics encodes typed metrics and logs them.
func LogMetrics(ctx context.Context, s Store, m Metrics) (*RunRecord, error) {
	encoded, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return s.LogRun(ctx, encoded)
}

// Recent returns the last n records of the given agent type, oldest first.
func Recent(records []*RunRecord, agentType AgentType, n int) []*RunRecord {
	var matched []*RunRecord
	for _, r := range records {
		if r.AgentType() == agentType {
			matched = append(matched, r)
		}
	}
	if len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched
}

// GroupByAgent partitions records by agent tag, preserving order.
func GroupByAgent(records []*RunRecord) map[AgentType][]*RunRecord {
	groups := make(map[AgentType][]*RunRecord)
	for _, r := range records {
		groups[r.AgentType()] = append(groups[r.AgentType()], r)
	}
	return groups
}

func newRecord(now time.Time, metrics map[string]interface{}) *RunRecord {
	copied := make(map[string]interface{}, len(metrics))
	for k, v := range metrics {
		copied[k] = v
	}
	return &RunRecord{
		ID:        uuid.New(),
		Timestamp: now,
		Metrics:   copied,
	}
}
