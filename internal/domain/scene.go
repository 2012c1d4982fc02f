package domain

// Scene is one unit of script input mapped to exactly one generated image.
// Scenes are created by the script parser and never mutated afterwards.
type Scene struct {
	Ordinal     int // 1-based, sequential within a batch
	ScriptLine  string
	Description string
}
