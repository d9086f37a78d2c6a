package ui

// Config holds window/presentation settings for the ebiten host. This core
// doesn't synthesize audio (spec.md Non-goals: "audio-graph output"), so
// there is nothing analogous to the teacher's audio buffering knobs here.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "dmgboy"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
