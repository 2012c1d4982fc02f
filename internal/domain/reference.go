package domain

import "strings"

// ReferenceTag classifies what aspect of the output a reference image is
// meant to pin down.
type ReferenceTag string

const (
	TagCharacter ReferenceTag = "character"
	TagStyle     ReferenceTag = "style"
	TagLocation  ReferenceTag = "location"
	TagOther     ReferenceTag = "other"
)

// ParseReferenceTag maps free-form user input onto a known tag. Anything
// unrecognized falls back to TagOther so conditioning still applies.
func ParseReferenceTag(s string) ReferenceTag {
	switch ReferenceTag(strings.ToLower(strings.TrimSpace(s))) {
	case TagCharacter:
		return TagCharacter
	case TagStyle:
		return TagStyle
	case TagLocation:
		return TagLocation
	default:
		return TagOther
	}
}

// ReferenceImage is a user-supplied image used to condition generation.
// RemoteID is assigned by the registrar once the upload is confirmed and is
// read-only from then on.
type ReferenceImage struct {
	Tag         ReferenceTag
	Description string
	Data        []byte
	RemoteID    string
}
