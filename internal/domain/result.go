package domain

import "fmt"

// GeneratedImage is the product of a job that reached JobComplete. The exact
// prompt text is kept alongside the URL so a scene can be reproduced later.
type GeneratedImage struct {
	SceneOrdinal int
	URL          string
	Prompt       string
}

// SceneOutcome is one entry of a BatchResult: either a generated image or a
// failure, never both. State holds the terminal state the scene's job reached;
// a scene whose submission failed outright is recorded as JobFailed.
type SceneOutcome struct {
	SceneOrdinal int
	Prompt       string
	State        JobState
	Image        *GeneratedImage
	Err          error
}

// Failed reports whether the scene produced no image.
func (o SceneOutcome) Failed() bool {
	return o.Image == nil
}

// BatchResult holds one outcome per attempted scene, ordered by ordinal. The
// ordinals are exactly the requested ordinals: a failed scene keeps its slot
// instead of shifting later scenes down.
type BatchResult struct {
	Outcomes []SceneOutcome
}

// Images returns the successful outcomes' images, still in ordinal order.
func (r BatchResult) Images() []GeneratedImage {
	var images []GeneratedImage
	for _, o := range r.Outcomes {
		if o.Image != nil {
			images = append(images, *o.Image)
		}
	}
	return images
}

// FailedCount counts the scenes that produced no image.
func (r BatchResult) FailedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// SceneFilename names the archive entry and on-disk file for one scene.
func SceneFilename(ordinal int) string {
	return fmt.Sprintf("scene_%d.png", ordinal)
}
