package concepts

import "regexp"

// Token grammars for bracketed tags embedded in prompt text. The
// trigger grammar is deliberately broader than the concept grammar:
// trigger phrases may contain spaces, canonical concept names may not.
// Every concept-name token is therefore also a trigger token, never
// the reverse.
var (
	triggerPattern = regexp.MustCompile(`<[\w \-]+>`)
	conceptPattern = regexp.MustCompile(`<([\w-]+)>`)
)

// FindTriggers returns every trigger-grammar token in prompt, in order,
// brackets included. Returns nil when the prompt contains none.
func FindTriggers(prompt string) []string {
	return triggerPattern.FindAllString(prompt, -1)
}

// FindConcepts returns the concept name inside every concept-grammar
// token in prompt, in order, brackets stripped. Returns nil when the
// prompt contains none.
func FindConcepts(prompt string) []string {
	matches := conceptPattern.FindAllStringSubmatch(prompt, -1)
	if matches == nil {
		return nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}
	return names
}
