package interview

import "regexp"

// The model signals conversation state with in-band marker tokens. Markers
// can appear anywhere in the text, repeat, and vary in case; every
// occurrence is removed from the user-visible content. Marker parsing is
// kept separate from text cleaning so each is testable on its own.
var (
	completedMarker = regexp.MustCompile(`(?i)\[\[STATE:COMPLETED\]\]`)
	wrappingMarker  = regexp.MustCompile(`(?i)\[\[STATE:WRAPPING_UP\]\]`)
	thinkBlock      = regexp.MustCompile(`(?is)<think>.*?</think>`)
)

// ExtractState scans raw model output for state markers and returns the
// derived state plus the text with all markers stripped. Completed wins if
// both markers are present.
func ExtractState(s string) (State, string) {
	state := StateOngoing
	if wrappingMarker.MatchString(s) {
		state = StateWrappingUp
	}
	if completedMarker.MatchString(s) {
		state = StateCompleted
	}
	s = completedMarker.ReplaceAllString(s, "")
	s = wrappingMarker.ReplaceAllString(s, "")
	return state, s
}

// StripThinking removes <think>...</think> side-channel blocks emitted by
// reasoning models. The contents must never reach a user or the transcript.
func StripThinking(s string) string {
	return thinkBlock.ReplaceAllString(s, "")
}
