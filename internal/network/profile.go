package network

import "time"

// Profile is a named preset of capture defaults (spec §4.5).
type Profile string

const (
	ProfileCustom Profile = "custom"
	ProfileAPI    Profile = "api"
	ProfilePage   Profile = "page"
	ProfileWS     Profile = "ws"
	ProfilePerf   Profile = "perf"
)

// Defaults is the resolved set of capture knobs a profile expands to, before
// any explicit caller override is applied on top.
type Defaults struct {
	CaptureMs          int64
	MaxRequests         int
	MaxWebSockets       int
	MaxWSMessages       int
	IncludeHeaders      bool
	IncludePostData     bool
	IncludeWSMessages   bool
	ReloadBeforeCapture bool
	Filter              Filter
}

const (
	hardMaxRequests   = 1000
	hardMaxWebSockets = 200
	hardMaxWSMessages = 2000
)

// ResolveDefaults expands p into concrete capture knobs. Unknown profiles
// fall back to ProfileCustom's baseline (generic, unfiltered, headers-only).
func ResolveDefaults(p Profile) Defaults {
	switch p {
	case ProfileAPI:
		return Defaults{
			CaptureMs:       15_000,
			MaxRequests:     hardMaxRequests,
			IncludeHeaders:  true,
			IncludePostData: true,
			Filter:          Filter{ResourceTypes: []string{"xhr", "fetch"}},
		}
	case ProfilePage:
		return Defaults{
			CaptureMs:           20_000,
			MaxRequests:         hardMaxRequests,
			IncludeHeaders:      true,
			ReloadBeforeCapture: true,
		}
	case ProfileWS:
		return Defaults{
			CaptureMs:         30_000,
			MaxRequests:       hardMaxRequests,
			MaxWebSockets:     hardMaxWebSockets,
			MaxWSMessages:     hardMaxWSMessages,
			IncludeWSMessages: true,
		}
	case ProfilePerf:
		return Defaults{
			CaptureMs:      15_000,
			MaxRequests:    hardMaxRequests,
			IncludeHeaders: false,
		}
	case ProfileCustom, "":
		fallthrough
	default:
		return Defaults{
			CaptureMs:      10_000,
			MaxRequests:    hardMaxRequests,
			IncludeHeaders: true,
		}
	}
}

// CaptureDuration returns d.CaptureMs as a time.Duration, defaulting to 10s
// when unset or non-positive.
func (d Defaults) CaptureDuration() time.Duration {
	if d.CaptureMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.CaptureMs) * time.Millisecond
}

// Clamp enforces the hard ceilings spec §4.5 names regardless of profile or
// caller override.
func (d Defaults) Clamp() Defaults {
	if d.MaxRequests <= 0 || d.MaxRequests > hardMaxRequests {
		d.MaxRequests = hardMaxRequests
	}
	if d.MaxWebSockets > hardMaxWebSockets {
		d.MaxWebSockets = hardMaxWebSockets
	}
	if d.MaxWSMessages > hardMaxWSMessages {
		d.MaxWSMessages = hardMaxWSMessages
	}
	return d
}
