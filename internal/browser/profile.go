package browser

import (
	"math/rand/v2"
)

// Profile holds a coherent set of mobile fingerprint values for a single
// capture. UA, Client Hints, viewport and locale all describe the same
// virtual handset.
type Profile struct {
	UserAgent           string
	Brands              [][2]string // [brand, majorVersion]; empty for Safari
	Platform            string      // Client Hints platform
	PlatformVersion     string
	Model               string
	NavigatorPlatform   string
	AcceptLanguage      string
	Languages           []string
	HardwareConcurrency int64
	DeviceMemory        int
	ScreenWidth         int64
	ScreenHeight        int64
	DeviceScaleFactor   float64
	TimezoneID          string
}

type devicePreset struct {
	userAgent         string
	brands            [][2]string
	platform          string
	platformVersion   string
	model             string
	navigatorPlatform string
	width, height     int64
	scale             float64
	cores             int64
	memory            int
}

var devicePresets = []devicePreset{
	{
		userAgent:         "Mozilla/5.0 (iPhone; CPU iPhone OS 14_7_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Mobile/15E148 Safari/604.1",
		platform:          "iOS",
		platformVersion:   "14.7.1",
		model:             "iPhone",
		navigatorPlatform: "iPhone",
		width:             390,
		height:            844,
		scale:             1,
		cores:             6,
		memory:            4,
	},
	{
		userAgent:         "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
		platform:          "iOS",
		platformVersion:   "17.5.0",
		model:             "iPhone",
		navigatorPlatform: "iPhone",
		width:             393,
		height:            852,
		scale:             1,
		cores:             6,
		memory:            8,
	},
	{
		userAgent:         "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Mobile Safari/537.36",
		brands:            [][2]string{{"Not A(Brand", "8"}, {"Chromium", "132"}, {"Google Chrome", "132"}},
		platform:          "Android",
		platformVersion:   "14.0.0",
		model:             "Pixel 8",
		navigatorPlatform: "Linux armv8l",
		width:             412,
		height:            915,
		scale:             1,
		cores:             8,
		memory:            8,
	},
}

type localePreset struct {
	timezoneID     string
	acceptLanguage string
	languages      []string
}

var localePresets = []localePreset{
	{"America/Sao_Paulo", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7", []string{"pt-BR", "pt", "en-US", "en"}},
	{"America/New_York", "en-US,en;q=0.9", []string{"en-US", "en"}},
	{"Europe/London", "en-GB,en;q=0.9,en-US;q=0.8", []string{"en-GB", "en", "en-US"}},
}

// NewProfile picks a randomized but internally consistent mobile profile.
func NewProfile() *Profile {
	dev := devicePresets[rand.IntN(len(devicePresets))]
	loc := localePresets[rand.IntN(len(localePresets))]

	return &Profile{
		UserAgent:           dev.userAgent,
		Brands:              dev.brands,
		Platform:            dev.platform,
		PlatformVersion:     dev.platformVersion,
		Model:               dev.model,
		NavigatorPlatform:   dev.navigatorPlatform,
		AcceptLanguage:      loc.acceptLanguage,
		Languages:           loc.languages,
		HardwareConcurrency: dev.cores,
		DeviceMemory:        dev.memory,
		ScreenWidth:         dev.width,
		ScreenHeight:        dev.height,
		DeviceScaleFactor:   dev.scale,
		TimezoneID:          loc.timezoneID,
	}
}
