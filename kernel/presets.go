package kernel

// EarlyPreset selects a reflection pattern for EarlyReflections.
type EarlyPreset int

const (
	// EarlyPresetSparse is a short, sparse pattern for the reflections-only mode.
	EarlyPresetSparse EarlyPreset = iota
	// EarlyPresetRoom is a dense pattern of a mid-sized room.
	EarlyPresetRoom
	// EarlyPresetHall is a wide, late-arriving pattern of a large hall.
	EarlyPresetHall
)

const maxTaps = 18

type reflectionTap struct {
	ms    float64
	gainL float64
	gainR float64
}

// Tap times are for a size factor of 1.
var earlyPatterns = [...][]reflectionTap{
	EarlyPresetSparse: {
		{4.3, 0.84, 0.61},
		{7.9, -0.56, 0.77},
		{11.2, 0.49, -0.42},
		{15.8, 0.37, 0.45},
		{21.4, -0.31, 0.29},
		{27.7, 0.22, -0.26},
		{34.1, 0.18, 0.15},
		{42.9, -0.12, 0.13},
	},
	EarlyPresetRoom: {
		{2.1, 0.71, 0.52},
		{3.8, -0.49, 0.66},
		{5.6, 0.58, -0.41},
		{7.3, 0.44, 0.47},
		{9.9, -0.38, 0.41},
		{12.4, 0.36, -0.33},
		{14.8, -0.30, 0.32},
		{17.9, 0.27, 0.24},
		{21.1, -0.23, 0.25},
		{24.6, 0.21, -0.19},
		{28.3, 0.17, 0.18},
		{32.7, -0.14, 0.15},
		{37.2, 0.12, -0.11},
		{43.5, 0.09, 0.10},
	},
	EarlyPresetHall: {
		{6.2, 0.62, 0.48},
		{9.7, -0.51, 0.57},
		{13.5, 0.47, -0.44},
		{18.1, 0.41, 0.43},
		{22.9, -0.37, 0.36},
		{27.4, 0.34, -0.35},
		{33.0, -0.30, 0.31},
		{38.8, 0.27, 0.25},
		{45.1, -0.24, 0.26},
		{51.6, 0.22, -0.21},
		{58.9, 0.19, 0.20},
		{66.3, -0.17, 0.16},
		{73.8, 0.15, -0.14},
		{81.2, 0.13, 0.12},
		{89.7, -0.11, 0.12},
		{97.5, 0.09, -0.10},
		{106.4, 0.08, 0.07},
		{115.0, -0.06, 0.07},
	},
}

func (p EarlyPreset) taps() []reflectionTap {
	if p < 0 || int(p) >= len(earlyPatterns) {
		p = EarlyPresetRoom
	}
	return earlyPatterns[p]
}

func maxPatternMs() float64 {
	longest := 0.0
	for _, pattern := range earlyPatterns {
		for _, tap := range pattern {
			longest = max(longest, tap.ms)
		}
	}
	return longest
}
