// Package enterprise gates self-hosted deployments on a license. The
// hosted service never loads one; checks against a nil license fail
// closed.
package enterprise

import (
	"errors"
	"slices"
	"time"
)

//nolint:gochecknoglobals // sentinel error
var ErrLicenseExpired = errors.New("enterprise: license expired")

//nolint:gochecknoglobals // sentinel error
var ErrNoLicense = errors.New("enterprise: no license configured")

// Feature flags a license may carry.
const (
	FeatureIdentityVault = "identity_vault"
	FeatureGoalSource    = "goal_source"
	FeatureSlackHandoff  = "slack_handoff"
)

// License represents a self-hosted deployment license.
type License struct {
	ID        string
	Org       string
	MaxSeats  int      // staff users across the deployment, 0 = unlimited
	Features  []string // enabled feature flags
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Validator checks deployment licenses.
type Validator struct {
	license *License
}

// NewValidator creates a Validator. If license is nil, all checks fail
// with ErrNoLicense.
func NewValidator(license *License) *Validator {
	return &Validator{license: license}
}

// Validate checks if the license is present and not expired.
func (v *Validator) Validate() error {
	if v.license == nil {
		return ErrNoLicense
	}

	if time.Now().After(v.license.ExpiresAt) {
		return ErrLicenseExpired
	}

	return nil
}

// HasFeature checks if a specific feature is enabled.
func (v *Validator) HasFeature(feature string) bool {
	if v.license == nil {
		return false
	}

	return slices.Contains(v.license.Features, feature)
}

// MaxSeats returns the maximum allowed staff users (0 = unlimited).
func (v *Validator) MaxSeats() int {
	if v.license == nil {
		return 0
	}

	return v.license.MaxSeats
}
