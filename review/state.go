package review

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrReviewClosed is returned once the reviewer has shut the review down.
	ErrReviewClosed = errors.New("review closed")

	// ErrSubmissionPending is returned when a submission is already waiting
	// to be picked up.
	ErrSubmissionPending = errors.New("submission already pending")

	// ErrUnknownItem is returned when a submission names an item that is not
	// under review.
	ErrUnknownItem = errors.New("unknown review item")
)

// Item is a drafted action awaiting approval, e.g. a comment on a post.
type Item struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	Headline string `json:"headline"`
	PostURL  string `json:"post_url"`
	Content  string `json:"content"`
	Draft    string `json:"draft"`
}

// Approval is an approved item with the text the reviewer settled on.
type Approval struct {
	ItemID string `json:"id"`
	Text   string `json:"text"`
}

// Submission is one batch of approvals.
type Submission struct {
	ID         uuid.UUID  `json:"id"`
	Approved   []Approval `json:"approved"`
	ReceivedAt time.Time  `json:"received_at"`
}

// Status is the outcome of acting on an approved item.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result records what happened to one approved item.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Summary counts results by status.
type Summary struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// State is shared between the review server and the agent. Submissions are
// handed over through a single-slot channel; shutdown is a closed channel.
type State struct {
	mu       sync.RWMutex
	items    []Item
	results  map[string]Result
	complete bool

	submissions chan Submission
	shutdown    chan struct{}
	closeOnce   sync.Once
}

// NewState creates review state over items.
func NewState(items []Item) *State {
	return &State{
		items:       items,
		results:     map[string]Result{},
		submissions: make(chan Submission, 1),
		shutdown:    make(chan struct{}),
	}
}

// Items returns a copy of the items under review.
func (s *State) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *State) hasItem(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

// Submit hands approvals to the agent without blocking.
func (s *State) Submit(approved []Approval) (Submission, error) {
	select {
	case <-s.shutdown:
		return Submission{}, ErrReviewClosed
	default:
	}
	for _, a := range approved {
		if !s.hasItem(a.ItemID) {
			return Submission{}, ErrUnknownItem
		}
	}

	sub := Submission{
		ID:         uuid.New(),
		Approved:   approved,
		ReceivedAt: time.Now(),
	}
	select {
	case s.submissions <- sub:
		return sub, nil
	default:
		return Submission{}, ErrSubmissionPending
	}
}

// WaitSubmission blocks until a submission arrives, the review is shut down
// or ctx is done.
func (s *State) WaitSubmission(ctx context.Context) (Submission, error) {
	select {
	case sub := <-s.submissions:
		return sub, nil
	case <-s.shutdown:
		return Submission{}, ErrReviewClosed
	case <-ctx.Done():
		return Submission{}, ctx.Err()
	}
}

// Shutdown closes the review. It is safe to call more than once.
func (s *State) Shutdown() {
	s.closeOnce.Do(func() { close(s.shutdown) })
}

// Done is closed on shutdown.
func (s *State) Done() <-chan struct{} {
	return s.shutdown
}

// RecordResult stores the outcome for an item.
func (s *State) RecordResult(itemID string, r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[itemID] = r
}

// MarkComplete flags that every approved item has been acted on.
func (s *State) MarkComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete = true
}

// Results returns the recorded results, their summary and whether the agent
// has finished.
func (s *State) Results() (map[string]Result, Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Result, len(s.results))
	var sum Summary
	for id, r := range s.results {
		out[id] = r
		switch r.Status {
		case StatusSuccess:
			sum.Success++
		case StatusFailed:
			sum.Failed++
		case StatusSkipped:
			sum.Skipped++
		}
	}
	sum.Total = len(out)
	return out, sum, s.complete
}
