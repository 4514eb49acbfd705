package draft

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/hairizuan-noorazman/linkedin-agent/review"
)

var (
	// ErrContentTooShort is returned for posts with too little text to
	// comment on.
	ErrContentTooShort = errors.New("post content too short")

	// ErrSuspiciousContent is returned when post fields look like prompt
	// injection.
	ErrSuspiciousContent = errors.New("content contains suspicious patterns")

	// ErrEmptyDraft is returned when the model produced no usable text.
	ErrEmptyDraft = errors.New("generated draft is empty")
)

// Limits bounds the post text that is sent to the model.
type Limits struct {
	MinContentLength  int
	MaxContentLength  int
	MaxHeadlineLength int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MinContentLength:  20,
		MaxContentLength:  2000,
		MaxHeadlineLength: 300,
	}
}

// BuildPrompt validates and sanitizes item before embedding it in the
// comment prompt. Content beyond MaxContentLength is cut off.
func BuildPrompt(item review.Item, date string, limits Limits) (string, error) {
	for field, value := range map[string]string{
		"author":   item.Author,
		"headline": item.Headline,
		"content":  item.Content,
	} {
		if err := CheckSuspicious(field, value); err != nil {
			return "", err
		}
	}

	content := SanitizeContent(item.Content)
	if utf8.RuneCountInString(content) < limits.MinContentLength {
		return "", fmt.Errorf("%w: %d characters (min %d)", ErrContentTooShort, utf8.RuneCountInString(content), limits.MinContentLength)
	}
	content = truncate(content, limits.MaxContentLength)
	headline := truncate(SanitizeLine(item.Headline), limits.MaxHeadlineLength)

	dateLine := ""
	if date = SanitizeLine(date); date != "" {
		dateLine = fmt.Sprintf("\n<posted>%s</posted>", date)
	}

	prompt := fmt.Sprintf(`You are helping a legal professional engage meaningfully on LinkedIn.
Write a comment for the post below.

<post>
<author>
<name>%s</name>
<headline>%s</headline>
</author>%s
<content>
%s
</content>
</post>

<guidelines>
- Be genuinely supportive and acknowledge the author's perspective
- Add a thoughtful insight or observation when relevant
- Keep it concise: 2-4 sentences
- Sound natural and human, not generic
- Never use phrases like "Great post!", "Love this!" or "So true!"
- Do not be effusive or sycophantic
- Match the author's professional tone
- Output plain text only, without HTML, markdown or quotes
</guidelines>

Respond with ONLY the comment text.`,
		SanitizeLine(item.Author),
		headline,
		dateLine,
		content,
	)

	return prompt, nil
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
