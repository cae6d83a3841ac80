package models

// BalloonType is a named, immutable balloon configuration. The set of types
// is fixed by the task config before a session starts; one type is assigned
// per trial from the shuffled schedule.
type BalloonType struct {
	Name          string  `json:"name" yaml:"name"`
	Color         string  `json:"color" yaml:"color"`
	MaxPumps      int     `json:"max_pumps" yaml:"max_pumps"`
	RewardPerPump float64 `json:"reward_per_pump" yaml:"reward_per_pump"`
}

// DefaultBalloonTypes mirrors the classic three-color BART setup: a risky
// red balloon, a safe green one and a middling blue one.
func DefaultBalloonTypes() []BalloonType {
	return []BalloonType{
		{Name: "red", Color: "#d62828", MaxPumps: 8, RewardPerPump: 0.5},
		{Name: "green", Color: "#2a9d2a", MaxPumps: 32, RewardPerPump: 0.5},
		{Name: "blue", Color: "#2864d6", MaxPumps: 12, RewardPerPump: 0.5},
	}
}

// Balloon display geometry, in pixels. The server tracks the radius so every
// connected client renders the same balloon.
const (
	StartRadius = 10
	MaxRadius   = 274 // clamped inside the 680x560 left panel
	GrowthPct   = 0.025
)

// NextRadius returns the radius after one pump. Growth is proportional but at
// least one pixel, clamped to the panel.
func NextRadius(r int) int {
	next := int(float64(r)*(1.0+GrowthPct) + 0.5)
	if next <= r {
		next = r + 1
	}
	if next > MaxRadius {
		next = MaxRadius
	}
	return next
}
