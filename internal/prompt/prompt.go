// Package prompt implements the placeholder template engine and the store of
// editable prompt templates.
//
// Templates are plain strings with {{namespace.field}} placeholders (e.g.
// {{context.objectives}}, {{persona.background}}). Rendering is a single
// pass over the whole template: every occurrence of every known placeholder
// is substituted, unknown placeholders are left verbatim, and text
// introduced by a substituted value is never re-scanned.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Bindings maps placeholder paths (e.g. "context.projectName") to their
// rendered values.
type Bindings map[string]string

// Merge returns a new Bindings containing b plus all entries from others.
// Later maps win on key collisions.
func (b Bindings) Merge(others ...Bindings) Bindings {
	merged := make(Bindings, len(b))
	for k, v := range b {
		merged[k] = v
	}
	for _, other := range others {
		for k, v := range other {
			merged[k] = v
		}
	}
	return merged
}

var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z][\w.]*)\}\}`)

// Render substitutes every known placeholder in template with its binding.
// Unbound placeholders survive untouched, so rendering never fails.
func Render(template string, bindings Bindings) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[2 : len(match)-2]
		if value, ok := bindings[key]; ok {
			return value
		}
		return match
	})
}

// Template names understood by the store.
const (
	TemplateInterviewer = "interviewer"
	TemplateInterviewee = "interviewee"
	TemplateInsights    = "insights"
	TemplateBatch       = "batch"
	TemplateAnalysis    = "analysis"
	TemplateQuestions   = "questions"
)

// Store holds the live template for each prompt role alongside its
// compiled-in default. Overrides live for the daemon's lifetime and are
// reset only by an explicit Reset call.
type Store struct {
	mu   sync.RWMutex
	live map[string]string
}

// NewStore creates a store seeded with the compiled-in defaults.
func NewStore() *Store {
	live := make(map[string]string, len(defaults))
	for name, tmpl := range defaults {
		live[name] = tmpl
	}
	return &Store{live: live}
}

// Names returns the known template names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(defaults))
	for name := range defaults {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the live template for name, or the empty string for an
// unknown name.
func (s *Store) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live[name]
}

// Default returns the compiled-in default for name.
func (s *Store) Default(name string) string {
	return defaults[name]
}

// Set replaces the live template for name. Blank or whitespace-only input
// is a no-op, so a careless editor can never blank out a prompt.
func (s *Store) Set(name, template string) error {
	if _, ok := defaults[name]; !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	if strings.TrimSpace(template) == "" {
		return nil
	}
	s.mu.Lock()
	s.live[name] = template
	s.mu.Unlock()
	return nil
}

// Reset restores the compiled-in default for name.
func (s *Store) Reset(name string) error {
	tmpl, ok := defaults[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	s.mu.Lock()
	s.live[name] = tmpl
	s.mu.Unlock()
	return nil
}
