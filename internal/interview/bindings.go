package interview

import (
	"fmt"
	"strings"

	"github.com/averdin/parley/internal/prompt"
)

// ContextBindings maps an interview context onto template placeholders.
// List-valued fields are rendered as human-readable blocks, not raw data.
func ContextBindings(ictx Context) prompt.Bindings {
	return prompt.Bindings{
		"context.projectName":    ictx.ProjectName,
		"context.targetAudience": ictx.TargetAudience,
		"context.objectives":     bulletList(ictx.Objectives),
		"context.questions":      questionList(ictx.Questions),
		"context.idea":           ictx.Idea,
	}
}

// PersonaBindings maps a persona onto template placeholders.
func PersonaBindings(p Persona) prompt.Bindings {
	return prompt.Bindings{
		"persona.background":  p.Background,
		"persona.expertise":   strings.Join(p.Expertise, ", "),
		"persona.personality": p.Personality,
	}
}

// ConversationBindings maps a transcript onto the {{conversation}} placeholder.
func ConversationBindings(turns []Turn) prompt.Bindings {
	return prompt.Bindings{
		"conversation": FormatTranscript(turns),
	}
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func questionList(questions []Question) string {
	lines := make([]string, len(questions))
	for i, q := range questions {
		lines[i] = fmt.Sprintf("%d. %s (Purpose: %s)", i+1, q.Question, q.Purpose)
	}
	return strings.Join(lines, "\n")
}
