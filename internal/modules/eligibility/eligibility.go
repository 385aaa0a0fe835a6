// Package eligibility holds the donor cooldown rule. Every function is a pure
// function of the profile and the injected clock.
package eligibility

import (
	"time"

	"anoa.com/blooddonation/internal/entity"
	"anoa.com/blooddonation/pkg/clock"
)

// CooldownDays is the minimum interval between two donations.
const CooldownDays = 90

type Engine struct {
	clock clock.Clock
}

func NewEngine(c clock.Clock) *Engine {
	return &Engine{clock: c}
}

// Today is the engine's current calendar date.
func (e *Engine) Today() time.Time {
	return e.clock.Today()
}

// Now is the engine's current instant.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// CanDonateNow reports whether the profile is out of its cooldown window.
// A profile that never donated, or has no recorded donation date, can donate.
func (e *Engine) CanDonateNow(p *entity.Profile) bool {
	if !p.EverDonated || p.LastDonation == nil {
		return true
	}
	next := NextDate(*p.LastDonation)
	return !e.clock.Today().Before(next)
}

// NextPossibleDonationDate is last_donation + 90 days, or nil without a
// recorded donation. It does not look at ever_donated.
func (e *Engine) NextPossibleDonationDate(p *entity.Profile) *time.Time {
	if p.LastDonation == nil {
		return nil
	}
	next := NextDate(*p.LastDonation)
	return &next
}

// NextDate adds the cooldown to a donation date.
func NextDate(lastDonation time.Time) time.Time {
	return clock.DateOf(lastDonation).AddDate(0, 0, CooldownDays)
}
