// Package fingerprint assigns device profiles to accounts and applies
// per-launch randomized fingerprint noise to running instances. Every
// value it produces is deliberately non-constant; two launches of the
// same device profile must never report identical surfaces.
package fingerprint

import (
	"math/rand"
	"sync"
	"time"

	"tokfleet/pkg/config"
	"tokfleet/pkg/device"
	"tokfleet/pkg/logger"
	"tokfleet/pkg/store"
	"tokfleet/pkg/window"
)

// deviceMemoryChoices are the plausible navigator.deviceMemory values.
var deviceMemoryChoices = []int{4, 6, 8, 12, 16}

// networkTypes are the plausible connection effectiveType values.
var networkTypes = []string{"4g", "4g", "4g", "wifi", "3g"}

// NoiseParams is one per-launch draw of hardware and rendering noise.
type NoiseParams struct {
	CPUCores        int     `json:"cpu_cores"`
	DeviceMemoryGB  int     `json:"device_memory_gb"`
	BatteryLevel    float64 `json:"battery_level"`
	BatteryCharging bool    `json:"battery_charging"`
	NetworkType     string  `json:"network_type"`

	// Canvas perturbation: fraction of pixels shifted by up to ±amplitude
	// per channel, keyed by a per-launch seed.
	CanvasNoiseFraction  float64 `json:"canvas_noise_fraction"`
	CanvasNoiseAmplitude int     `json:"canvas_noise_amplitude"`
	CanvasSeed           int64   `json:"canvas_seed"`

	WebGLVendor   string `json:"webgl_vendor"`
	WebGLRenderer string `json:"webgl_renderer"`
}

// Injector owns device profile assignment and fingerprint application.
type Injector struct {
	store store.Store
	cfg   config.FingerprintConfig
	log   logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewInjector creates an injector. A nil rng gets a time-seeded source.
func NewInjector(st store.Store, cfg config.FingerprintConfig, log logger.Logger, rng *rand.Rand) *Injector {
	if log == nil {
		log = logger.GetLogger()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Injector{store: st, cfg: cfg, log: log, rng: rng}
}

// Assign resolves the device profile for an account. Accounts with no
// stored key, or a key that no longer resolves, get one picked uniformly
// at random from the catalog and persisted.
func (inj *Injector) Assign(accountID string) (device.Profile, error) {
	key, err := inj.store.GetDeviceProfileKey(accountID)
	if err != nil {
		return device.Profile{}, err
	}

	if key != "" {
		if profile, ok := device.Lookup(key); ok {
			return profile, nil
		}
		inj.log.WarnWithFields("stored device key no longer resolves, reassigning", map[string]interface{}{
			"account_id": accountID,
			"device_key": key,
		})
	}

	keys := device.AllKeys()
	inj.mu.Lock()
	key = keys[inj.rng.Intn(len(keys))]
	inj.mu.Unlock()

	if err := inj.store.SetDeviceProfileKey(accountID, key); err != nil {
		return device.Profile{}, err
	}

	profile, _ := device.Lookup(key)
	inj.log.InfoWithFields("assigned device profile", map[string]interface{}{
		"account_id": accountID,
		"device_key": key,
		"device":     profile.Name,
	})
	return profile, nil
}

// LaunchGeometry applies an independent uniform offset in
// [-jitter, +jitter] px to each viewport axis, so instances of the same
// device type never report identical dimensions.
func (inj *Injector) LaunchGeometry(profile device.Profile) (width, height int) {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	jitter := inj.cfg.ViewportJitter
	width = profile.Width + inj.jitterLocked(jitter)
	height = profile.Height + inj.jitterLocked(jitter)
	return width, height
}

func (inj *Injector) jitterLocked(bound int) int {
	if bound <= 0 {
		return 0
	}
	return inj.rng.Intn(2*bound+1) - bound
}

// BuildNoise draws a fresh set of noise parameters for one launch.
func (inj *Injector) BuildNoise(profile device.Profile) NoiseParams {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	vendor, renderer := webGLIdentity(profile, inj.rng)
	return NoiseParams{
		CPUCores:             4 + inj.rng.Intn(5), // 4-8
		DeviceMemoryGB:       deviceMemoryChoices[inj.rng.Intn(len(deviceMemoryChoices))],
		BatteryLevel:         0.15 + inj.rng.Float64()*0.85,
		BatteryCharging:      inj.rng.Float64() < 0.3,
		NetworkType:          networkTypes[inj.rng.Intn(len(networkTypes))],
		CanvasNoiseFraction:  inj.cfg.CanvasNoiseFraction,
		CanvasNoiseAmplitude: inj.cfg.CanvasNoiseAmplitude,
		CanvasSeed:           inj.rng.Int63(),
		WebGLVendor:          vendor,
		WebGLRenderer:        renderer,
	}
}

// Apply overrides the fingerprint reporting surfaces inside a running
// instance to match the profile and noise draw. Failures are logged and
// swallowed; a missed injection leaves the instance usable.
func (inj *Injector) Apply(handle window.Handle, profile device.Profile, noise NoiseParams) {
	if handle == nil || handle.IsDestroyed() {
		inj.log.WarnWithFields("fingerprint injection skipped, instance gone", map[string]interface{}{
			"device": profile.Name,
		})
		return
	}

	script := renderScript(profile, noise)
	if err := handle.RunScript(script); err != nil {
		inj.log.WarnWithFields("fingerprint injection failed", map[string]interface{}{
			"device": profile.Name,
			"error":  err.Error(),
		})
		return
	}

	inj.log.DebugWithFields("fingerprint applied", map[string]interface{}{
		"device":       profile.Name,
		"cpu_cores":    noise.CPUCores,
		"memory_gb":    noise.DeviceMemoryGB,
		"network_type": noise.NetworkType,
	})
}

// webGLIdentity picks a GPU identity consistent with the profile's
// platform family.
func webGLIdentity(profile device.Profile, rng *rand.Rand) (vendor, renderer string) {
	if profile.Platform == "iPhone" {
		renderers := []string{"Apple GPU", "Apple A15 GPU", "Apple A16 GPU"}
		return "Apple Inc.", renderers[rng.Intn(len(renderers))]
	}
	renderers := []string{
		"Adreno (TM) 660",
		"Adreno (TM) 730",
		"Mali-G78 MP14",
		"Mali-G710 MC10",
	}
	return "Qualcomm", renderers[rng.Intn(len(renderers))]
}
