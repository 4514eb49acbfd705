package classifier

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrGenerationUnavailable is returned by classifiers that cannot
	// generate free text.
	ErrGenerationUnavailable = errors.New("text generation unavailable")
)

// Label is the professional category of a profile headline.
type Label string

const (
	LabelPracticing Label = "practicing"
	LabelGeneral    Label = "general"
	LabelOther      Label = "other"
)

// ParseLabel maps free text onto a Label, defaulting to LabelOther.
func ParseLabel(s string) Label {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case LabelPracticing:
		return LabelPracticing
	case LabelGeneral:
		return LabelGeneral
	}
	return LabelOther
}

// Classifier labels headlines and generates short texts.
type Classifier interface {
	Classify(ctx context.Context, text string) (Label, error)
	Generate(ctx context.Context, prompt string) (string, error)
}

// PracticingKeywords mark practicing legal professionals.
var PracticingKeywords = []string{
	"partner", "associate", "counsel", "attorney", "litigator", "lawyer",
	"principal", "barrister", "solicitor", "advocate", "legal counsel",
	"general counsel", "managing partner", "senior partner", "of counsel",
	"trial lawyer", "criminal defense", "personal injury", "corporate lawyer",
	"in-house counsel", "law firm", "law group", "legal services", "legal practice",
	"litigation", "j.d.", "jd", "esq", "llb", "llm", "juris doctor",
}

// GeneralKeywords mark people around the legal industry who do not practice.
var GeneralKeywords = []string{
	"student", "recruiter", "legal ops", "paralegal", "intern", "assistant",
	"law student", "legal assistant", "legal secretary", "legal tech", "legaltech",
	"legal operations", "court clerk", "legal researcher", "legal analyst",
	"compliance", "legal advisor", "legal consultant", "legal professional",
}

// KeywordClassifier labels text by keyword lists. Non-practicing roles win
// over practicing ones, so "law student" or "legal assistant" never counts
// as practicing.
type KeywordClassifier struct {
	practicing []string
	general    []string
}

// NewKeywordClassifier uses the built-in keyword lists.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		practicing: PracticingKeywords,
		general:    GeneralKeywords,
	}
}

func (c *KeywordClassifier) Classify(ctx context.Context, text string) (Label, error) {
	lower := strings.ToLower(text)
	if containsAny(lower, c.general) {
		return LabelGeneral, nil
	}
	if containsAny(lower, c.practicing) {
		return LabelPracticing, nil
	}
	return LabelOther, nil
}

func (c *KeywordClassifier) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrGenerationUnavailable
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
