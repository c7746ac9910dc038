// Package interview defines the core data types and the conversation engine
// for simulated user-research interviews.
package interview

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies which side of the interview a persona or turn belongs to.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleInterviewee Role = "interviewee"
)

// Other returns the opposite role.
func (r Role) Other() Role {
	if r == RoleInterviewer {
		return RoleInterviewee
	}
	return RoleInterviewer
}

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleInterviewer || r == RoleInterviewee
}

// Question is one interview question with the reason it is being asked.
type Question struct {
	Question string `json:"question"`
	Purpose  string `json:"purpose"`
}

// Context is the interview setup supplied by the client. It is treated as
// immutable once a simulation starts.
type Context struct {
	ProjectName    string     `json:"projectName"`
	Objectives     []string   `json:"objectives"`
	TargetAudience string     `json:"targetAudience"`
	Questions      []Question `json:"questions"`
	Idea           string     `json:"idea,omitempty"`
}

// Persona biases generated text for one role.
type Persona struct {
	Role        Role     `json:"role"`
	Background  string   `json:"background"`
	Expertise   []string `json:"expertise,omitempty"`
	Personality string   `json:"personality,omitempty"`
}

// DefaultInterviewer is the persona used when the client supplies none.
func DefaultInterviewer() Persona {
	return Persona{
		Role:       RoleInterviewer,
		Background: "An experienced user researcher who runs focused, friendly product interviews.",
	}
}

// DefaultInterviewee derives a participant persona from the target audience.
func DefaultInterviewee(ictx Context) Persona {
	background := "A potential user of the product."
	if ictx.TargetAudience != "" {
		background = fmt.Sprintf("A member of the target audience: %s.", ictx.TargetAudience)
	}
	return Persona{
		Role:       RoleInterviewee,
		Background: background,
	}
}

// Turn is one utterance in a transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the conversation state derived from the latest model response.
// It is recomputed every turn, never stored by the engine.
type State string

const (
	StateOngoing    State = "ongoing"
	StateWrappingUp State = "wrapping_up"
	StateCompleted  State = "completed"
)

// Insights is the structured summary of a completed interview.
type Insights struct {
	KeyFindings     []string `json:"keyFindings"`
	Recommendations []string `json:"recommendations"`
}

// FormatTranscript serializes turns as "ROLE: content" lines, the shape the
// insights template expects for its {{conversation}} placeholder.
func FormatTranscript(turns []Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("%s: %s", strings.ToUpper(string(t.Role)), t.Content)
	}
	return strings.Join(lines, "\n")
}

// NextRole returns the role that speaks next: the interviewer opens an empty
// transcript, after which the roles alternate.
func NextRole(transcript []Turn) Role {
	if len(transcript) == 0 {
		return RoleInterviewer
	}
	return transcript[len(transcript)-1].Role.Other()
}
