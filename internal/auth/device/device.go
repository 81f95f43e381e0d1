// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package device provides stable device identity and trust management.

A device is identified by a deterministic SHA-256 fingerprint over its
normalized attributes. The same browser on the same machine always produces
the same fingerprint, which lets the risk engine tell "known device" from
"never seen before" without any client-side storage.

Trusted devices get longer sessions and skip extra login verification.
*/
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// # Entity

// Device is one registered client context of a user.
type Device struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Fingerprint is the 64-hex SHA-256 identity. Unique per user.
	Fingerprint string `json:"fingerprint"`

	DeviceType     string `json:"device_type"`
	OSName         string `json:"os_name"`
	OSVersion      string `json:"os_version"`
	BrowserName    string `json:"browser_name"`
	BrowserVersion string `json:"browser_version"`

	IsTrusted  bool      `json:"is_trusted"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Info is the raw client-supplied device description.
//
// UserAgent is usually all a browser provides; native apps additionally send
// ClientID and AppVersion. Fields left empty are derived from the user agent
// during normalization, falling back to "unknown".
type Info struct {
	DeviceType     string `json:"device_type,omitempty"`
	OSName         string `json:"os_name,omitempty"`
	OSVersion      string `json:"os_version,omitempty"`
	BrowserName    string `json:"browser_name,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
	AppVersion     string `json:"app_version,omitempty"`
}

// # Normalization

const unknown = "unknown"

var (
	tabletRegex = regexp.MustCompile(`(?i)\b(ipad|tablet|kindle|silk|playbook)\b`)
	mobileRegex = regexp.MustCompile(`(?i)(mobile|iphone|ipod|windows phone|blackberry|opera mini)`)

	windowsRegex = regexp.MustCompile(`Windows NT ([\d.]+)`)
	macRegex     = regexp.MustCompile(`Mac OS X ([\d_.]+)`)
	iosRegex     = regexp.MustCompile(`(?:iPhone|CPU) OS ([\d_]+)`)
	androidRegex = regexp.MustCompile(`Android ([\d.]+)`)
	linuxRegex   = regexp.MustCompile(`(?i)linux`)

	edgeRegex    = regexp.MustCompile(`Edg(?:e|A|iOS)?/([\d.]+)`)
	operaRegex   = regexp.MustCompile(`(?:OPR|Opera)/([\d.]+)`)
	chromeRegex  = regexp.MustCompile(`(?:Chrome|CriOS)/([\d.]+)`)
	firefoxRegex = regexp.MustCompile(`(?:Firefox|FxiOS)/([\d.]+)`)
	safariRegex  = regexp.MustCompile(`Version/([\d.]+).*Safari`)
)

/*
Normalize fills the derived fields of an Info from its user agent.

Description: Explicit client-supplied values win over derivation; anything
that cannot be determined becomes "unknown". Normalization is idempotent:
normalizing an already-normalized Info changes nothing.

Parameters:
  - info: Info

Returns:
  - Info: The normalized copy
*/
func Normalize(info Info) Info {
	ua := info.UserAgent

	if info.DeviceType == "" {
		info.DeviceType = detectDeviceType(ua)
	}
	if info.OSName == "" {
		info.OSName, info.OSVersion = detectOS(ua, info.OSVersion)
	}
	if info.OSVersion == "" {
		info.OSVersion = unknown
	}
	if info.BrowserName == "" {
		info.BrowserName, info.BrowserVersion = detectBrowser(ua, info.BrowserVersion)
	}
	if info.BrowserVersion == "" {
		info.BrowserVersion = unknown
	}

	return info
}

// detectDeviceType classifies mobile/tablet/desktop from the user agent.
func detectDeviceType(ua string) string {
	if ua == "" {
		return unknown
	}
	switch {
	case tabletRegex.MatchString(ua):
		return "tablet"
	case mobileRegex.MatchString(ua):
		return "mobile"
	case strings.Contains(ua, "Android"):
		// Android without a Mobile marker is a tablet by convention
		return "tablet"
	default:
		return "desktop"
	}
}

// detectOS extracts the operating system name and version.
func detectOS(ua, fallbackVersion string) (string, string) {
	version := func(match []string) string {
		if len(match) > 1 {
			return strings.ReplaceAll(match[1], "_", ".")
		}
		return fallbackVersion
	}

	switch {
	case windowsRegex.MatchString(ua):
		return "Windows", version(windowsRegex.FindStringSubmatch(ua))
	case iosRegex.MatchString(ua):
		return "iOS", version(iosRegex.FindStringSubmatch(ua))
	case androidRegex.MatchString(ua):
		return "Android", version(androidRegex.FindStringSubmatch(ua))
	case macRegex.MatchString(ua):
		return "macOS", version(macRegex.FindStringSubmatch(ua))
	case linuxRegex.MatchString(ua):
		return "Linux", fallbackVersion
	default:
		return unknown, fallbackVersion
	}
}

// detectBrowser extracts the browser name and version. Order matters:
// Chrome's UA contains "Safari", Edge's contains "Chrome".
func detectBrowser(ua, fallbackVersion string) (string, string) {
	version := func(match []string) string {
		if len(match) > 1 {
			return match[1]
		}
		return fallbackVersion
	}

	switch {
	case edgeRegex.MatchString(ua):
		return "Edge", version(edgeRegex.FindStringSubmatch(ua))
	case operaRegex.MatchString(ua):
		return "Opera", version(operaRegex.FindStringSubmatch(ua))
	case chromeRegex.MatchString(ua):
		return "Chrome", version(chromeRegex.FindStringSubmatch(ua))
	case firefoxRegex.MatchString(ua):
		return "Firefox", version(firefoxRegex.FindStringSubmatch(ua))
	case safariRegex.MatchString(ua):
		return "Safari", version(safariRegex.FindStringSubmatch(ua))
	default:
		return unknown, fallbackVersion
	}
}

// # Fingerprint

/*
Fingerprint computes the deterministic device identity.

Description: SHA-256 over the pipe-joined canonical attribute sequence
{device_type, os_name, os_version, browser_name, browser_version,
user_agent, client_id, app_version}. The input is normalized first, so the
function is idempotent over its own output attributes. Missing fields join
as empty strings.

Parameters:
  - info: Info

Returns:
  - string: 64 lowercase hex characters
*/
func Fingerprint(info Info) string {
	normalized := Normalize(info)

	canonical := strings.Join([]string{
		normalized.DeviceType,
		normalized.OSName,
		normalized.OSVersion,
		normalized.BrowserName,
		normalized.BrowserVersion,
		normalized.UserAgent,
		normalized.ClientID,
		normalized.AppVersion,
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
