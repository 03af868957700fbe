package concepts

import (
	"context"
	"fmt"
	"regexp"
)

// File names inside a concept bundle. Every bundle in the registry
// carries this set; TypeOfConceptFile may be absent.
const (
	ReadmeFile          = "README.md"
	EmbeddingFile       = "learned_embeds.bin"
	TokenIdentifierFile = "token_identifier.txt"
	TypeOfConceptFile   = "type_of_concept.txt"
)

var conceptNamePattern = regexp.MustCompile(`^[\w-]+$`)

// ValidateConceptName checks that name is a canonical concept name:
// ASCII letters, digits, underscore, dash, at least one character.
// Concept names are used verbatim as path segments, so nothing else
// is allowed.
func ValidateConceptName(name string) error {
	if !conceptNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidConceptName, name)
	}
	return nil
}

// FileSource resolves one file of one concept bundle to a local path.
// hubcache.Cache is the canonical implementation. When localOnly is true
// the source must not perform network acquisition on a miss.
//
// Return an error wrapping ErrFileNotFound when the file cannot be
// produced; NameIndex and Rewriter treat that as "leave the token as-is".
type FileSource interface {
	GetFile(ctx context.Context, concept, filename string, localOnly bool) (string, error)
}
