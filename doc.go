// Package concepts resolves trigger tags embedded in user prompts
// (e.g. "<my-style>") into locally cached embedding artifacts fetched
// on demand from a remote concept registry. It maintains the
// bidirectional mapping between canonical concept names and the trigger
// phrases users type, and rewrites prompts between the two forms.
package concepts
