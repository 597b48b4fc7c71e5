// Package findings normalizes symptom and sign identifiers so that frame
// authors and clients can spell them with different case, width or spacing
// and still refer to the same finding.
package findings

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/frame-dx-server/internal/domain"
)

// DefaultMaxLength bounds a single finding identifier, in runes.
const DefaultMaxLength = 128

// Normalize returns the canonical form of a finding identifier: NFKC,
// surrounding space trimmed, inner whitespace collapsed to one space, and
// case folded. It returns "" for blank input.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// Casers carry state and are not safe for concurrent use.
	return cases.Fold().String(s)
}

// Validator checks raw finding identifiers supplied by clients.
type Validator struct {
	MaxLength int
}

// NewValidator creates a validator with the given rune limit; a non-positive
// limit selects DefaultMaxLength.
func NewValidator(maxLength int) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Validator{MaxLength: maxLength}
}

// Validate reports whether raw can be used as a finding identifier. field is
// used to label the returned *domain.ValidationError.
func (v *Validator) Validate(field, raw string) error {
	if !utf8.ValidString(raw) {
		return domain.NewValidationError(field, "finding is not valid UTF-8", raw)
	}
	for _, r := range raw {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return domain.NewValidationError(field, "finding contains control characters", raw)
		}
	}

	normalized := Normalize(raw)
	if normalized == "" {
		return domain.NewValidationError(field, "finding cannot be empty", raw)
	}
	if n := len([]rune(normalized)); n > v.MaxLength {
		return domain.NewValidationError(field, fmt.Sprintf("finding exceeds %d characters", v.MaxLength), n)
	}
	return nil
}

// Parse validates and normalizes a list of raw identifiers into a Set.
// Duplicates collapse; the first invalid entry aborts parsing.
func (v *Validator) Parse(raw []string) (Set, error) {
	set := make(Set, len(raw))
	for i, value := range raw {
		if err := v.Validate(fmt.Sprintf("symptoms[%d]", i), value); err != nil {
			return nil, err
		}
		set.Add(value)
	}
	return set, nil
}
