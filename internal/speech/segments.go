package speech

import "strings"

// collectSegments appends the trailing interim to the committed segments.
func collectSegments(committed []string, interim string) []string {
	segments := append([]string(nil), committed...)
	return appendSegment(segments, interim)
}

// appendSegment merges prefix continuations so revisions do not duplicate text.
func appendSegment(segments []string, text string) []string {
	text = cleanSegment(text)
	if text == "" {
		return segments
	}
	if len(segments) == 0 {
		return append(segments, text)
	}

	last := segments[len(segments)-1]
	switch {
	case text == last, strings.HasPrefix(last, text):
		return segments
	case strings.HasPrefix(text, last):
		segments[len(segments)-1] = text
		return segments
	default:
		return append(segments, text)
	}
}

// isInterimContinuation reports whether current revises previous rather
// than starting new speech: at least half the shorter side's words match.
func isInterimContinuation(previous string, current string) bool {
	previous = cleanSegment(previous)
	current = cleanSegment(current)
	if previous == "" || current == "" {
		return true
	}
	if strings.HasPrefix(current, previous) || strings.HasPrefix(previous, current) {
		return true
	}

	prevWords := strings.Fields(previous)
	currWords := strings.Fields(current)
	shorter := min(len(prevWords), len(currWords))
	common := 0
	for common < shorter && strings.EqualFold(prevWords[common], currWords[common]) {
		common++
	}
	return common*2 >= shorter
}

// cleanSegment collapses whitespace runs.
func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
