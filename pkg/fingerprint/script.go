package fingerprint

import (
	"fmt"
	"strings"

	"tokfleet/pkg/device"
)

// renderScript builds the page-context script that overrides the
// navigator, screen, battery, connection, canvas, WebGL, geolocation and
// timezone reporting surfaces. The exact formula is not load-bearing;
// the requirement is that every launch looks different.
func renderScript(profile device.Profile, noise NoiseParams) string {
	var b strings.Builder

	b.WriteString("(() => {\n")

	// Navigator identity
	fmt.Fprintf(&b, "Object.defineProperty(navigator, 'platform', { get: () => %q });\n", profile.Platform)
	fmt.Fprintf(&b, "Object.defineProperty(navigator, 'userAgent', { get: () => %q });\n", profile.UserAgent)
	fmt.Fprintf(&b, "Object.defineProperty(navigator, 'language', { get: () => %q });\n", profile.Locale)
	fmt.Fprintf(&b, "Object.defineProperty(navigator, 'languages', { get: () => [%q, 'en'] });\n", profile.Locale)
	fmt.Fprintf(&b, "Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });\n", noise.CPUCores)
	fmt.Fprintf(&b, "Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });\n", noise.DeviceMemoryGB)
	b.WriteString("Object.defineProperty(navigator, 'webdriver', { get: () => undefined });\n")

	// Screen geometry
	fmt.Fprintf(&b, "Object.defineProperty(screen, 'width', { get: () => %d });\n", profile.Width)
	fmt.Fprintf(&b, "Object.defineProperty(screen, 'height', { get: () => %d });\n", profile.Height)
	fmt.Fprintf(&b, "Object.defineProperty(window, 'devicePixelRatio', { get: () => %g });\n", profile.PixelRatio)

	// Battery
	fmt.Fprintf(&b,
		"navigator.getBattery = () => Promise.resolve({ level: %.3f, charging: %t, chargingTime: 0, dischargingTime: Infinity });\n",
		noise.BatteryLevel, noise.BatteryCharging)

	// Connection
	fmt.Fprintf(&b,
		"Object.defineProperty(navigator, 'connection', { get: () => ({ effectiveType: %q, rtt: 50, downlink: 10, saveData: false }) });\n",
		noise.NetworkType)

	// Canvas noise: perturb a pseudo-random subset of pixels, keyed by
	// the per-launch seed so repeated reads within one session agree.
	fmt.Fprintf(&b, `
const canvasSeed = %d;
const noiseFraction = %g;
const noiseAmplitude = %d;
const origGetImageData = CanvasRenderingContext2D.prototype.getImageData;
CanvasRenderingContext2D.prototype.getImageData = function(...args) {
  const imageData = origGetImageData.apply(this, args);
  let state = canvasSeed >>> 0;
  const next = () => { state = (state * 1664525 + 1013904223) >>> 0; return state / 4294967296; };
  for (let i = 0; i < imageData.data.length; i += 4) {
    if (next() < noiseFraction) {
      const delta = next() < 0.5 ? -noiseAmplitude : noiseAmplitude;
      imageData.data[i] = Math.min(255, Math.max(0, imageData.data[i] + delta));
    }
  }
  return imageData;
};
`, noise.CanvasSeed, noise.CanvasNoiseFraction, noise.CanvasNoiseAmplitude)

	// WebGL identity
	fmt.Fprintf(&b, `
const origGetParameter = WebGLRenderingContext.prototype.getParameter;
WebGLRenderingContext.prototype.getParameter = function(param) {
  if (param === 37445) return %q;
  if (param === 37446) return %q;
  return origGetParameter.apply(this, arguments);
};
`, noise.WebGLVendor, noise.WebGLRenderer)

	// Geolocation
	fmt.Fprintf(&b, `
navigator.geolocation.getCurrentPosition = (success) => {
  success({ coords: { latitude: %g, longitude: %g, accuracy: 50 }, timestamp: Date.now() });
};
`, profile.Latitude, profile.Longitude)

	// Timezone
	fmt.Fprintf(&b, `
const origResolvedOptions = Intl.DateTimeFormat.prototype.resolvedOptions;
Intl.DateTimeFormat.prototype.resolvedOptions = function() {
  const options = origResolvedOptions.apply(this, arguments);
  options.timeZone = %q;
  return options;
};
`, profile.Timezone)

	b.WriteString("})();\n")
	return b.String()
}
