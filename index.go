package concepts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// NameIndex maintains the bidirectional mapping between canonical
// concept names and trigger phrases. The trigger for a concept is the
// first line of the bundle's token identifier file, read at most once
// and memoized for the process lifetime. Entries are only ever added in
// pairs, so the two maps stay mutually consistent; there is no eviction.
type NameIndex struct {
	source FileSource

	mu           sync.RWMutex
	triggers     map[string]string // concept name -> trigger phrase
	conceptNames map[string]string // trigger phrase -> concept name
}

// NewNameIndex creates a NameIndex backed by source (typically a
// hubcache.Cache). Panics if source is nil.
func NewNameIndex(source FileSource) *NameIndex {
	if source == nil {
		panic("concepts: FileSource must not be nil")
	}
	return &NameIndex{
		source:       source,
		triggers:     make(map[string]string),
		conceptNames: make(map[string]string),
	}
}

// ResolveTrigger returns the trigger phrase for concept. On first use it
// reads the bundle's token identifier file through the FileSource; when
// allowFetch is false the lookup is local-only, so an uncached concept
// yields an error wrapping ErrFileNotFound instead of a download.
// A blank identifier file resolves nothing and is reported the same way.
func (ix *NameIndex) ResolveTrigger(ctx context.Context, concept string, allowFetch bool) (string, error) {
	if err := ValidateConceptName(concept); err != nil {
		return "", err
	}
	ix.mu.RLock()
	trigger, ok := ix.triggers[concept]
	ix.mu.RUnlock()
	if ok {
		return trigger, nil
	}

	path, err := ix.source.GetFile(ctx, concept, TokenIdentifierFile, !allowFetch)
	if err != nil {
		return "", &ResolveError{Concept: concept, Filename: TokenIdentifierFile, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ResolveError{Concept: concept, Filename: TokenIdentifierFile, Err: err}
	}
	line, _, _ := strings.Cut(string(data), "\n")
	trigger = strings.TrimSpace(line)
	if trigger == "" {
		return "", &ResolveError{Concept: concept, Filename: TokenIdentifierFile, Err: ErrFileNotFound}
	}

	ix.mu.Lock()
	if prev, ok := ix.triggers[concept]; ok {
		trigger = prev
	} else {
		ix.triggers[concept] = trigger
		ix.conceptNames[trigger] = concept
	}
	ix.mu.Unlock()
	return trigger, nil
}

// ResolveConcept returns the concept name whose identifier file produced
// trigger. Pure memoized lookup: it never touches disk or network,
// because an arbitrary trigger phrase does not identify a canonical
// bundle until ResolveTrigger has observed it (triggers are not unique
// across the registry).
func (ix *NameIndex) ResolveConcept(trigger string) (string, error) {
	ix.mu.RLock()
	concept, ok := ix.conceptNames[trigger]
	ix.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTriggerUnknown, trigger)
	}
	return concept, nil
}
