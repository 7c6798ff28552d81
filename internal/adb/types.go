package adb

// DeviceState is the connection status reported by `adb devices`.
// The set is open-ended; anything we don't recognize maps to StateUnknown.
type DeviceState string

const (
	// StateDevice means the device is connected and authorized.
	StateDevice DeviceState = "device"
	// StateUnauthorized means the device is waiting for the user to accept
	// the debugging prompt on-screen.
	StateUnauthorized DeviceState = "unauthorized"
	// StateOffline means the transport sees the device but cannot talk to it.
	StateOffline DeviceState = "offline"
	// StateUnknown covers any status string we don't recognize.
	StateUnknown DeviceState = "unknown"
)

// ParseDeviceState maps a raw `adb devices` status column to a DeviceState.
func ParseDeviceState(s string) DeviceState {
	switch s {
	case "device":
		return StateDevice
	case "unauthorized":
		return StateUnauthorized
	case "offline":
		return StateOffline
	default:
		return StateUnknown
	}
}

// DeviceInfo is one row of `adb devices` output.
type DeviceInfo struct {
	Serial string
	State  DeviceState
}

// UserInfo is one Android user profile as reported by `pm list users`.
type UserInfo struct {
	ID uint16
}

// ListOptions selects what `pm list packages` reports.
type ListOptions struct {
	// Filter narrows by installation/enablement state.
	Filter ListFilter
	// SystemOnly restricts the listing to system-image packages (-s).
	SystemOnly bool
}

// ListFilter selects which installation states `pm list packages` reports.
type ListFilter int

const (
	// ListDefault lists packages installed for the user.
	ListDefault ListFilter = iota
	// ListIncludeUninstalled adds packages uninstalled for the user but
	// still present on the system image (-u).
	ListIncludeUninstalled
	// ListOnlyEnabled lists only enabled packages (-e).
	ListOnlyEnabled
	// ListOnlyDisabled lists only disabled packages (-d).
	ListOnlyDisabled
)

func (f ListFilter) flag() string {
	switch f {
	case ListIncludeUninstalled:
		return "-u"
	case ListOnlyEnabled:
		return "-e"
	case ListOnlyDisabled:
		return "-d"
	default:
		return ""
	}
}

// ValidPackageID reports whether id is a well-formed Android application ID:
// at least two dot-separated components, each starting with an ASCII letter
// followed only by letters, digits or underscores.
// See https://developer.android.com/build/configure-app-module#set-application-id
func ValidPackageID(id string) bool {
	var components int
	start := 0
	for i := 0; i <= len(id); i++ {
		if i == len(id) || id[i] == '.' {
			if !validPackageComponent(id[start:i]) {
				return false
			}
			components++
			start = i + 1
		}
	}
	return components >= 2
}

func validPackageComponent(s string) bool {
	if len(s) == 0 || !isASCIILetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		b := s[i]
		if !isASCIILetter(b) && !(b >= '0' && b <= '9') && b != '_' {
			return false
		}
	}
	return true
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
