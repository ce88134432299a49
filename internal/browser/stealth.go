package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/stupside/reelmeta/internal/app"
)

//go:embed js/stealth.js
var stealthJS string

// buildStealthJS fills the stealth script placeholders from a Profile.
func buildStealthJS(profile *Profile) string {
	languages, _ := json.Marshal(profile.Languages)

	r := strings.NewReplacer(
		"__NAVIGATOR_PLATFORM__", profile.NavigatorPlatform,
		"__DEVICE_MEMORY__", fmt.Sprintf("%d", profile.DeviceMemory),
		"__LANGUAGES__", string(languages),
	)
	return r.Replace(stealthJS)
}

// allocatorOpts returns exec-allocator options for an isolated, throwaway
// Chrome. chromedp creates a fresh temporary profile directory per allocator.
func allocatorOpts(cfg app.BrowserConfig, profile *Profile) []chromedp.ExecAllocatorOption {
	var headlessVal string
	if cfg.Headless {
		headlessVal = "new"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("headless", headlessVal),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-setuid-sandbox", cfg.NoSandbox),

		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("mute-audio", true),

		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),

		chromedp.WindowSize(int(profile.ScreenWidth), int(profile.ScreenHeight)),

		chromedp.UserAgent(profile.UserAgent),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// injectStealth injects the stealth script before any page JS runs.
func injectStealth(profile *Profile) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(buildStealthJS(profile)).Do(ctx)
		return err
	}
}

// injectCDPStealth applies the mobile identity at the protocol level: UA
// with Client Hints, locale, timezone and touch emulation.
func injectCDPStealth(profile *Profile) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := emulation.SetAutomationOverride(false).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetHardwareConcurrencyOverride(profile.HardwareConcurrency).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetTimezoneOverride(profile.TimezoneID).Do(ctx); err != nil {
			return err
		}

		if err := emulation.SetLocaleOverride().WithLocale(profile.Languages[0]).Do(ctx); err != nil {
			return err
		}

		ua := emulation.SetUserAgentOverride(profile.UserAgent)
		ua.AcceptLanguage = profile.AcceptLanguage
		ua.Platform = profile.NavigatorPlatform

		brands := make([]*emulation.UserAgentBrandVersion, len(profile.Brands))
		for i, b := range profile.Brands {
			brands[i] = &emulation.UserAgentBrandVersion{Brand: b[0], Version: b[1]}
		}

		ua.UserAgentMetadata = &emulation.UserAgentMetadata{
			Brands:          brands,
			Platform:        profile.Platform,
			PlatformVersion: profile.PlatformVersion,
			Architecture:    "arm",
			Model:           profile.Model,
			Mobile:          true,
		}
		return ua.Do(ctx)
	}
}
