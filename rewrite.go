package concepts

import "context"

// Rewriter rewrites bracketed tag tokens embedded in prompt text,
// converting between trigger phrases and canonical concept names.
// Rewrites are single-pass and order-preserving; substituted text is
// never rescanned for nested tokens. A token that fails to resolve is
// left in the output verbatim, so a rewrite never fails the prompt.
type Rewriter struct {
	index *NameIndex
}

// NewRewriter creates a Rewriter over index. Panics if index is nil.
func NewRewriter(index *NameIndex) *Rewriter {
	if index == nil {
		panic("concepts: NameIndex must not be nil")
	}
	return &Rewriter{index: index}
}

// TriggersToConcepts replaces every known trigger token in prompt with
// its canonical "<concept-name>" form. Trigger phrases are not unique
// across the registry, so prompts persisted as metadata store the unique
// concept name rather than the trigger. Unknown triggers stay unchanged;
// a prompt without trigger tokens is returned as-is.
func (r *Rewriter) TriggersToConcepts(prompt string) string {
	if !triggerPattern.MatchString(prompt) {
		return prompt
	}
	return triggerPattern.ReplaceAllStringFunc(prompt, func(token string) string {
		concept, err := r.index.ResolveConcept(token)
		if err != nil {
			return token
		}
		return "<" + concept + ">"
	})
}

// ConceptsToTriggers replaces every "<concept-name>" token in prompt
// with the concept's trigger phrase, fetching uncached bundles from the
// registry as needed. When at least one token matches, onConceptsFound
// (if non-nil) is invoked once with the full ordered list of names
// before any substitution, so the caller can batch-prefetch or display
// progress. With zero matches the prompt is returned unchanged and the
// callback is never invoked. Tokens that fail to resolve stay unchanged.
func (r *Rewriter) ConceptsToTriggers(ctx context.Context, prompt string, onConceptsFound func(names []string)) string {
	names := FindConcepts(prompt)
	if len(names) == 0 {
		return prompt
	}
	if onConceptsFound != nil {
		onConceptsFound(names)
	}
	return conceptPattern.ReplaceAllStringFunc(prompt, func(token string) string {
		name := token[1 : len(token)-1]
		trigger, err := r.index.ResolveTrigger(ctx, name, true)
		if err != nil {
			return token
		}
		return trigger
	})
}
