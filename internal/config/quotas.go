package config

import (
	"time"

	"golang.org/x/time/rate"
)

// kbpsToBytesPerSecond and mbpsToBytesPerSecond convert the JSON config's
// human units into the byte-per-second rate golang.org/x/time/rate expects.
func kbpsToBytesPerSecond(kbps float64) float64 { return kbps * 1000 / 8 }
func mbpsToBytesPerSecond(mbps float64) float64 { return mbps * 1_000_000 / 8 }

// QuotaLimiters holds the live token-bucket limiters derived from a
// QuotasConfig: one overall limiter shared by every channel send, and one
// per-AppId limiter for the per-application throughput caps (spec.md §4.7's
// supplemental quota enforcement, checked inside filterAndCall immediately
// before invoking the sender).
type QuotaLimiters struct {
	Enabled        bool
	Overall        *rate.Limiter
	PerApplication map[string]*rate.Limiter
}

// NewQuotaLimiters builds limiters from cfg. Burst is set equal to the
// per-second rate, the simplest token bucket that still absorbs one second
// of line-rate traffic without starting to drop immediately at startup.
func NewQuotaLimiters(cfg QuotasConfig) *QuotaLimiters {
	q := &QuotaLimiters{
		Enabled:        cfg.QuotaEnforcementEnabled,
		PerApplication: make(map[string]*rate.Limiter, len(cfg.Throughput.ApplicationsKbps)),
	}
	if !q.Enabled {
		return q
	}

	if cfg.Throughput.OverallMbps > 0 {
		bps := mbpsToBytesPerSecond(cfg.Throughput.OverallMbps)
		q.Overall = rate.NewLimiter(rate.Limit(bps), int(bps))
	}
	for app, kbps := range cfg.Throughput.ApplicationsKbps {
		if kbps <= 0 {
			continue
		}
		bps := kbpsToBytesPerSecond(kbps)
		q.PerApplication[app] = rate.NewLimiter(rate.Limit(bps), int(bps))
	}
	return q
}

// Allow reports whether n bytes addressed to appID may be sent right now,
// consuming tokens from both the overall and the per-application bucket. It
// always returns true when quota enforcement is disabled or unconfigured.
func (q *QuotaLimiters) Allow(appID string, n int) bool {
	if q == nil || !q.Enabled {
		return true
	}
	if q.Overall != nil && !q.Overall.AllowN(time.Now(), n) {
		return false
	}
	if lim, ok := q.PerApplication[appID]; ok && !lim.AllowN(time.Now(), n) {
		return false
	}
	return true
}
