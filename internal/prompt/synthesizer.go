// Package prompt builds the textual generation prompt for a scene. It is
// pure: identical inputs always produce byte-identical output, which
// downstream consumers rely on for reproducibility.
package prompt

import (
	"fmt"
	"strings"

	"github.com/cinegen/cinegen/internal/domain"
)

// cinematicClause is appended to every scene prompt, constant across the
// batch.
const cinematicClause = "Cinematic depth, atmospheric lighting, professional cinematography, 8k resolution, dramatic composition."

// Synthesize combines a scene and the registered references into one prompt.
// Clauses are joined with single spaces; reference clauses appear in
// registration order after the cinematic clause.
func Synthesize(scene domain.Scene, references []domain.ReferenceImage) string {
	parts := make([]string, 0, len(references)+2)

	base := fmt.Sprintf("Scene %d: %s", scene.Ordinal, scene.ScriptLine)
	if scene.Description != "" {
		base += ". " + scene.Description
	}
	parts = append(parts, base+".", cinematicClause)

	for _, ref := range references {
		parts = append(parts, referenceClause(ref))
	}
	return strings.Join(parts, " ")
}

func referenceClause(ref domain.ReferenceImage) string {
	switch ref.Tag {
	case domain.TagCharacter:
		return fmt.Sprintf("Maintain the exact facial features and identity shown in reference image '%s'.", ref.Description)
	case domain.TagStyle:
		return fmt.Sprintf("Match the visual style, lighting, and atmosphere of reference image '%s'.", ref.Description)
	case domain.TagLocation:
		return fmt.Sprintf("Carry over the environment and setting details from reference image '%s'.", ref.Description)
	default:
		return fmt.Sprintf("Incorporate elements from reference image '%s' for %s consistency.", ref.Description, ref.Tag)
	}
}
