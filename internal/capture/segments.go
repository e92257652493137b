package capture

import (
	"strings"

	"github.com/storyvoice/storyvoice/internal/transcript"
)

// finalSegments returns the committed segments plus any trailing interim
// remainder that was never finalized before the stream closed.
func finalSegments(committed []string, lastInterim string) []string {
	segments := append([]string(nil), committed...)
	if interim := transcript.Clean(lastInterim); interim != "" {
		segments = mergeSegment(segments, interim)
	}
	return segments
}

// mergeSegment folds one recognized segment into the accumulated list,
// collapsing continuation updates so the transcript never duplicates itself.
func mergeSegment(segments []string, text string) []string {
	text = transcript.Clean(text)
	if text == "" {
		return segments
	}
	if len(segments) == 0 {
		return append(segments, text)
	}

	last := transcript.Clean(segments[len(segments)-1])
	switch {
	case text == last:
		return segments
	case strings.HasPrefix(text, last):
		segments[len(segments)-1] = text
		return segments
	case strings.HasPrefix(last, text):
		return segments
	default:
		return append(segments, text)
	}
}

// extendsSpeech reports whether an interim update continues the previous one
// rather than starting a fresh utterance after a pause.
func extendsSpeech(previous string, current string) bool {
	previous = transcript.Clean(previous)
	current = transcript.Clean(current)
	if previous == "" || current == "" {
		return true
	}
	if previous == current {
		return true
	}
	if strings.HasPrefix(current, previous) || strings.HasPrefix(previous, current) {
		return true
	}

	prevWords := strings.Fields(previous)
	currWords := strings.Fields(current)
	shared := sharedLeadingWords(prevWords, currWords)
	shorter := len(prevWords)
	if len(currWords) < shorter {
		shorter = len(currWords)
	}
	if shorter == 0 {
		return true
	}
	return shared*2 >= shorter
}

func sharedLeadingWords(left []string, right []string) int {
	limit := len(left)
	if len(right) < limit {
		limit = len(right)
	}
	count := 0
	for i := 0; i < limit; i++ {
		if left[i] != right[i] {
			break
		}
		count++
	}
	return count
}
