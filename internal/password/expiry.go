package password

import "time"

// Rotation policy defaults.
const (
	DefaultRotationDays = 90
	DefaultWarnDays     = 14
)

// ExpiryStatus classifies a password against the rotation policy. It is
// derived on demand and never stored.
type ExpiryStatus struct {
	IsExpired     bool `json:"is_expired"`
	DaysRemaining int  `json:"days_remaining"`
	InWarningBand bool `json:"in_warning_band"`
}

// EvaluateExpiry classifies lastChangeAt against the rotation policy at the
// given instant. A password that was never set counts as already expired so
// privileged use is blocked until one exists.
func EvaluateExpiry(lastChangeAt *time.Time, now time.Time, rotationDays, warnDays int) ExpiryStatus {
	if rotationDays <= 0 {
		rotationDays = DefaultRotationDays
	}
	if warnDays <= 0 {
		warnDays = DefaultWarnDays
	}

	if lastChangeAt == nil {
		return ExpiryStatus{IsExpired: true, DaysRemaining: 0}
	}

	elapsedDays := int(now.Sub(*lastChangeAt).Hours() / 24)
	remaining := rotationDays - elapsedDays
	if remaining < 0 {
		remaining = 0
	}

	status := ExpiryStatus{
		IsExpired:     remaining <= 0,
		DaysRemaining: remaining,
	}
	status.InWarningBand = !status.IsExpired && remaining <= warnDays
	return status
}
