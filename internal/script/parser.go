// Package script turns raw multi-line script text into ordered scenes.
package script

import (
	"fmt"
	"strings"

	"github.com/cinegen/cinegen/internal/domain"
)

// Mode selects how lines of script text map to scenes.
type Mode string

const (
	// ModeSingle treats every non-blank line as one scene with no description.
	ModeSingle Mode = "single"
	// ModePaired treats a non-blank line as a scene's script line and, when
	// the immediately following line is non-blank, consumes that line as the
	// scene's description. A blank line inside a description therefore starts
	// a new scene; callers who need multi-paragraph descriptions should keep
	// them on one line.
	ModePaired Mode = "paired"
)

// ParseMode validates a user-supplied mode string. Empty input selects
// ModeSingle.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingle, "":
		return ModeSingle, nil
	case ModePaired:
		return ModePaired, nil
	}
	return "", fmt.Errorf("unsupported script mode %q", s)
}

// Parse splits raw script text into ordered scenes with 1-based sequential
// ordinals. Blank lines are skipped; empty input yields no scenes and no
// error.
func Parse(raw string, mode Mode) []domain.Scene {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	var scenes []domain.Scene
	if mode == ModePaired {
		for i := 0; i < len(lines); {
			if lines[i] == "" {
				i++
				continue
			}
			scene := domain.Scene{Ordinal: len(scenes) + 1, ScriptLine: lines[i]}
			if i+1 < len(lines) && lines[i+1] != "" {
				scene.Description = lines[i+1]
				i += 2
			} else {
				i++
			}
			scenes = append(scenes, scene)
		}
		return scenes
	}

	for _, line := range lines {
		if line == "" {
			continue
		}
		scenes = append(scenes, domain.Scene{Ordinal: len(scenes) + 1, ScriptLine: line})
	}
	return scenes
}
