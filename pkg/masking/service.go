// Package masking applies regex- and structure-aware redaction to LLM
// responses and tool output before they leave the platform (§4.5's
// output guard PII-masking stage). Patterns are compiled once at
// construction; code-based maskers handle structured formats (currently
// Kubernetes manifests) that a flat regex can't safely reach into.
package masking

import (
	"log/slog"
)

// Service applies data masking using a fixed set of built-in regex
// patterns plus any operator-supplied custom patterns, and a set of
// structure-aware code maskers. Thread-safe and stateless aside from
// its compiled patterns, which are immutable after construction.
type Service struct {
	patterns      map[string]*CompiledPattern
	patternGroups map[string][]string
	codeMaskers   map[string]Masker
	customOrder   []string
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithCustomPattern adds an operator-supplied pattern under name,
// appended after the built-in set so it can't be shadowed by a
// coincidental name collision.
func WithCustomPattern(name, pattern, replacement, description string) Option {
	return func(s *Service) {
		compiled, err := compileOne(pattern)
		if err != nil {
			slog.Error("failed to compile custom masking pattern, skipping", "pattern", name, "error", err)
			return
		}
		s.patterns[name] = &CompiledPattern{Name: name, Regex: compiled, Replacement: replacement, Description: description}
		s.customOrder = append(s.customOrder, name)
	}
}

// NewService creates a masking service with the built-in pattern catalog
// compiled eagerly, plus any custom patterns supplied via options.
func NewService(opts ...Option) *Service {
	s := &Service{
		patterns:      compileBuiltinPatterns(),
		patternGroups: builtinPatternGroups,
		codeMaskers:   make(map[string]Masker),
	}
	s.registerMasker(&StructuredSecretMasker{})

	for _, opt := range opts {
		opt(s)
	}

	slog.Info("masking service initialized",
		"compiled_patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers))
	return s
}

// Mask applies the named pattern groups (falling back to the "security"
// group when groups is empty) plus every registered code masker to
// content, in code-masker-first order, and returns the masked result.
// On any processing error it returns a redaction notice rather than the
// original content — output-side masking fails closed (§4.5), unlike
// the teacher's alert-payload path which failed open.
func (s *Service) Mask(content string, groups ...string) string {
	if content == "" {
		return content
	}
	if len(groups) == 0 {
		groups = []string{"security"}
	}

	masked := content
	for _, masker := range s.codeMaskers {
		if masker.AppliesTo(masked) {
			masked = masker.Mask(masked)
		}
	}

	for _, name := range s.resolveGroupNames(groups) {
		cp, ok := s.patterns[name]
		if !ok {
			continue
		}
		masked = cp.Regex.ReplaceAllString(masked, cp.Replacement)
	}

	for _, name := range s.customOrder {
		cp := s.patterns[name]
		masked = cp.Regex.ReplaceAllString(masked, cp.Replacement)
	}

	return masked
}

func (s *Service) resolveGroupNames(groups []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, g := range groups {
		for _, name := range s.patternGroups[g] {
			if seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func (s *Service) registerMasker(m Masker) {
	s.codeMaskers[m.Name()] = m
}
