package bidding

import (
	"context"
	"time"

	"github.com/hungtmh/online-auction-system-sub000/internal/domain/auction"
)

// AutoExtendPolicy decides whether an accepted bid pushes the deadline
// back. Per-auction overrides win; absent or non-positive values fall
// back to the cached marketplace settings. There is no cap: each late
// bid inside the threshold extends again.
type AutoExtendPolicy struct {
	settings SettingsProvider
}

// NewAutoExtendPolicy creates the policy over a settings provider
func NewAutoExtendPolicy(settings SettingsProvider) *AutoExtendPolicy {
	return &AutoExtendPolicy{settings: settings}
}

// MaybeExtend returns the new deadline and true when the bid landed
// inside the extension threshold; otherwise the deadline is unchanged.
func (p *AutoExtendPolicy) MaybeExtend(ctx context.Context, a *auction.Auction, now time.Time) (time.Time, bool) {
	if !a.AutoExtendEnabled {
		return a.EndTime, false
	}

	extendMinutes := a.AutoExtendMinutes
	if extendMinutes <= 0 {
		extendMinutes = p.settings.GetInt(ctx, SettingAutoExtendMinutes, DefaultAutoExtendMinutes)
	}
	thresholdMinutes := a.AutoExtendThresholdMinutes
	if thresholdMinutes <= 0 {
		thresholdMinutes = p.settings.GetInt(ctx, SettingAutoExtendThreshold, DefaultAutoExtendThreshold)
	}

	if a.EndTime.Sub(now) > time.Duration(thresholdMinutes)*time.Minute {
		return a.EndTime, false
	}
	return a.EndTime.Add(time.Duration(extendMinutes) * time.Minute), true
}
