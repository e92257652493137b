// Package verdict models the grading result returned for a submitted answer.
package verdict

import "strings"

// Category is the backend's qualitative grade of an answer.
type Category string

const (
	CategoryExcellent  Category = "excellent"
	CategoryGood       Category = "good"
	CategoryPartial    Category = "partial"
	CategoryIncorrect  Category = "incorrect"
	CategoryGuidance   Category = "guidance"
	CategoryCorrection Category = "correction"
)

// Verdict is one grading result, either from the backend or synthesized
// locally when the backend could not be reached.
type Verdict struct {
	Correct       bool
	Category      Category
	Message       string
	ShowAnswer    bool
	CorrectAnswer string
	Misspelled    []string
	Local         bool
}

// Failure synthesizes a local incorrect verdict carrying a user-facing
// message. Raw transport errors must never surface in the interaction flow.
func Failure(message string) Verdict {
	if strings.TrimSpace(message) == "" {
		message = "Something went wrong checking your answer. Please try again."
	}
	return Verdict{
		Correct:  false,
		Category: CategoryIncorrect,
		Message:  message,
		Local:    true,
	}
}

// Retryable reports whether the "Try Again" action applies: anything short
// of a fully correct answer may be retried.
func (v Verdict) Retryable() bool {
	return !v.Correct
}

// Spoken renders the verdict message the way it is read aloud to the child.
func (v Verdict) Spoken() string {
	message := strings.TrimSpace(v.Message)
	if message == "" {
		return ""
	}
	if v.Correct {
		// Only the top grade earns the superlative; lower grades keep the
		// register of the backend message.
		if v.Category == CategoryExcellent {
			return "Excellent! " + message
		}
		return message
	}
	if v.ShowAnswer && v.CorrectAnswer != "" {
		return message + " Let me help you with the correct answer."
	}
	return message
}

// Segment is one run of answer text, marked when it matched a misspelled word.
type Segment struct {
	Text       string
	Misspelled bool
}

// HighlightMisspelled splits text into segments so a renderer can mark the
// words the backend flagged. Matching is case-insensitive on whole words.
func (v Verdict) HighlightMisspelled(text string) []Segment {
	if text == "" {
		return nil
	}
	if len(v.Misspelled) == 0 {
		return []Segment{{Text: text}}
	}

	flagged := make(map[string]struct{}, len(v.Misspelled))
	for _, word := range v.Misspelled {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			flagged[word] = struct{}{}
		}
	}

	var segments []Segment
	appendSegment := func(text string, misspelled bool) {
		if text == "" {
			return
		}
		if n := len(segments); n > 0 && segments[n-1].Misspelled == misspelled {
			segments[n-1].Text += text
			return
		}
		segments = append(segments, Segment{Text: text, Misspelled: misspelled})
	}

	remaining := text
	for remaining != "" {
		i := strings.IndexFunc(remaining, func(r rune) bool { return r == ' ' })
		word := remaining
		rest := ""
		if i >= 0 {
			word = remaining[:i]
			rest = remaining[i:]
		}

		trimmed := strings.ToLower(strings.Trim(word, ".,!?;:'\""))
		_, misspelled := flagged[trimmed]
		appendSegment(word, misspelled)

		if rest == "" {
			break
		}
		j := strings.IndexFunc(rest, func(r rune) bool { return r != ' ' })
		if j < 0 {
			appendSegment(rest, false)
			break
		}
		appendSegment(rest[:j], false)
		remaining = rest[j:]
	}

	return segments
}
