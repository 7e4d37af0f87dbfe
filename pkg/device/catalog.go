// Package device holds the fixed catalog of device fingerprint profiles
// that instances impersonate. Profiles are immutable; callers only ever
// select them by key.
package device

import (
	"sort"
	"strings"
)

// DefaultKey is the fallback profile when a stored key does not resolve.
const DefaultKey = "iphone13"

// Profile is an immutable catalog entry describing one real device.
type Profile struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	UserAgent  string  `json:"user_agent"`
	PixelRatio float64 `json:"pixel_ratio"`
	Platform   string  `json:"platform"`
	Timezone   string  `json:"timezone"`
	Locale     string  `json:"locale"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

const (
	iosUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) " +
		"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1"
	ios16UserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_1 like Mac OS X) " +
		"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Mobile/15E148 Safari/604.1"
	androidUserAgent = "Mozilla/5.0 (Linux; Android 12; %MODEL%) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Mobile Safari/537.36"
)

var catalog = map[string]Profile{
	"iphone13promax": {
		Key: "iphone13promax", Name: "iPhone 13 Pro Max",
		Width: 428, Height: 926, UserAgent: iosUserAgent, PixelRatio: 3,
		Platform: "iPhone", Timezone: "America/New_York", Locale: "en-US",
		Latitude: 40.7128, Longitude: -74.0060,
	},
	"iphone13": {
		Key: "iphone13", Name: "iPhone 13",
		Width: 390, Height: 844, UserAgent: iosUserAgent, PixelRatio: 3,
		Platform: "iPhone", Timezone: "America/Chicago", Locale: "en-US",
		Latitude: 41.8781, Longitude: -87.6298,
	},
	"iphone12": {
		Key: "iphone12", Name: "iPhone 12",
		Width: 390, Height: 844, UserAgent: iosUserAgent, PixelRatio: 3,
		Platform: "iPhone", Timezone: "America/Los_Angeles", Locale: "en-US",
		Latitude: 34.0522, Longitude: -118.2437,
	},
	"iphone11": {
		Key: "iphone11", Name: "iPhone 11",
		Width: 414, Height: 896, UserAgent: iosUserAgent, PixelRatio: 2,
		Platform: "iPhone", Timezone: "America/Denver", Locale: "en-US",
		Latitude: 39.7392, Longitude: -104.9903,
	},
	"iphone14": {
		Key: "iphone14", Name: "iPhone 14",
		Width: 390, Height: 844, UserAgent: ios16UserAgent, PixelRatio: 3,
		Platform: "iPhone", Timezone: "Europe/London", Locale: "en-GB",
		Latitude: 51.5074, Longitude: -0.1278,
	},
	"iphone14pro": {
		Key: "iphone14pro", Name: "iPhone 14 Pro",
		Width: 393, Height: 852, UserAgent: ios16UserAgent, PixelRatio: 3,
		Platform: "iPhone", Timezone: "Europe/Paris", Locale: "fr-FR",
		Latitude: 48.8566, Longitude: 2.3522,
	},
	"galaxys21": {
		Key: "galaxys21", Name: "Galaxy S21",
		Width: 360, Height: 800, UserAgent: androidUA("SM-G991B"), PixelRatio: 3,
		Platform: "Linux armv8l", Timezone: "Europe/Berlin", Locale: "de-DE",
		Latitude: 52.5200, Longitude: 13.4050,
	},
	"galaxys22": {
		Key: "galaxys22", Name: "Galaxy S22",
		Width: 360, Height: 780, UserAgent: androidUA("SM-S901B"), PixelRatio: 3,
		Platform: "Linux armv8l", Timezone: "America/New_York", Locale: "en-US",
		Latitude: 40.7306, Longitude: -73.9352,
	},
	"pixel6": {
		Key: "pixel6", Name: "Google Pixel 6",
		Width: 412, Height: 915, UserAgent: androidUA("Pixel 6"), PixelRatio: 2.625,
		Platform: "Linux armv8l", Timezone: "America/Los_Angeles", Locale: "en-US",
		Latitude: 37.7749, Longitude: -122.4194,
	},
	"oneplus9": {
		Key: "oneplus9", Name: "OnePlus 9",
		Width: 412, Height: 919, UserAgent: androidUA("LE2113"), PixelRatio: 2.625,
		Platform: "Linux armv8l", Timezone: "Asia/Kolkata", Locale: "en-IN",
		Latitude: 19.0760, Longitude: 72.8777,
	},
}

func androidUA(model string) string {
	return strings.ReplaceAll(androidUserAgent, "%MODEL%", model)
}

// Lookup returns the profile for a key. The second return value is false
// for unknown keys; callers are expected to fall back to DefaultKey.
func Lookup(key string) (Profile, bool) {
	p, ok := catalog[key]
	return p, ok
}

// Default returns the canonical fallback profile.
func Default() Profile {
	return catalog[DefaultKey]
}

// AllKeys returns every defined profile key in stable order.
func AllKeys() []string {
	keys := make([]string, 0, len(catalog))
	for k := range catalog {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns every profile in the catalog, keyed for presentation.
func All() map[string]Profile {
	out := make(map[string]Profile, len(catalog))
	for k, v := range catalog {
		out[k] = v
	}
	return out
}
