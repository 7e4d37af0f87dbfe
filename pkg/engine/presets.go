package engine

import (
	"math/rand"

	"tokfleet/pkg/store"
)

// DefaultPresetName is the fallback when an unknown preset is asked for.
const DefaultPresetName = "organic"

// Preset is a named base automation configuration. The stored values are
// centers; Randomize jitters the magnitudes per account so no two
// accounts applying the same preset end up identical.
type Preset struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`

	AutoScroll         bool    `json:"auto_scroll"`
	ScrollSpeed        int     `json:"scroll_speed"`
	AutoLike           bool    `json:"auto_like"`
	LikeProbability    float64 `json:"like_probability"`
	AutoFollow         bool    `json:"auto_follow"`
	FollowDailyLimit   int     `json:"follow_daily_limit"`
	AutoComment        bool    `json:"auto_comment"`
	CommentProbability float64 `json:"comment_probability"`
}

// presetOrder fixes the display order for Presets().
var presetOrder = []string{"aggressive", "organic", "engagement", "conservative", "custom"}

var presetCatalog = map[string]Preset{
	"aggressive": {
		Name:               "aggressive",
		Label:              "Aggressive Growth",
		Description:        "Fast scrolling with heavy liking and following",
		AutoScroll:         true,
		ScrollSpeed:        50,
		AutoLike:           true,
		LikeProbability:    0.5,
		AutoFollow:         true,
		FollowDailyLimit:   200,
		AutoComment:        true,
		CommentProbability: 0.3,
	},
	"organic": {
		Name:               "organic",
		Label:              "Organic Browsing",
		Description:        "Slow, natural browsing with light engagement",
		AutoScroll:         true,
		ScrollSpeed:        150,
		AutoLike:           true,
		LikeProbability:    0.2,
		AutoFollow:         true,
		FollowDailyLimit:   50,
		AutoComment:        true,
		CommentProbability: 0.1,
	},
	"engagement": {
		Name:               "engagement",
		Label:              "Engagement Focus",
		Description:        "Likes and comments without following",
		AutoScroll:         true,
		ScrollSpeed:        100,
		AutoLike:           true,
		LikeProbability:    0.4,
		AutoFollow:         false,
		FollowDailyLimit:   50,
		AutoComment:        true,
		CommentProbability: 0.5,
	},
	"conservative": {
		Name:               "conservative",
		Label:              "Conservative",
		Description:        "Careful scrolling with rare likes only",
		AutoScroll:         true,
		ScrollSpeed:        200,
		AutoLike:           true,
		LikeProbability:    0.1,
		AutoFollow:         false,
		FollowDailyLimit:   25,
		AutoComment:        false,
		CommentProbability: 0.1,
	},
	"custom": {
		Name:               "custom",
		Label:              "Custom",
		Description:        "Start from defaults and tune everything by hand",
		AutoScroll:         false,
		ScrollSpeed:        100,
		AutoLike:           false,
		LikeProbability:    0.3,
		AutoFollow:         false,
		FollowDailyLimit:   100,
		AutoComment:        false,
		CommentProbability: 0.2,
	},
}

// Presets returns the catalog in display order.
func Presets() []Preset {
	out := make([]Preset, 0, len(presetOrder))
	for _, name := range presetOrder {
		out = append(out, presetCatalog[name])
	}
	return out
}

// LookupPreset resolves a preset by name, falling back to the default
// for unknown names.
func LookupPreset(name string) Preset {
	if preset, ok := presetCatalog[name]; ok {
		return preset
	}
	return presetCatalog[DefaultPresetName]
}

// Randomize derives a per-account settings record from a preset. Only
// magnitudes are jittered; the enable flags always match the preset so
// a preset that disables an action keeps it off for every account.
func Randomize(preset Preset, rng *rand.Rand) store.AutomationSettings {
	speed := int(float64(preset.ScrollSpeed) * (0.5 + rng.Float64()))
	if speed < 1 {
		speed = 1
	}

	like := clamp(preset.LikeProbability+(rng.Float64()*0.4-0.2), 0.05, 0.95)

	followLimit := int(float64(preset.FollowDailyLimit) * (0.7 + rng.Float64()*0.6))
	if followLimit < 1 {
		followLimit = 1
	}

	comment := clamp(preset.CommentProbability+(rng.Float64()*0.3-0.15), 0.05, 0.5)

	return store.AutomationSettings{
		AutoScroll:         preset.AutoScroll,
		ScrollSpeed:        speed,
		AutoLike:           preset.AutoLike,
		LikeProbability:    like,
		AutoFollow:         preset.AutoFollow,
		FollowDailyLimit:   followLimit,
		AutoComment:        preset.AutoComment,
		CommentProbability: comment,
		Preset:             preset.Name,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
