package domain

import (
	"context"
	"log/slog"
	"time"
)

// EnrichWithObservance overlays data from lookup onto a converted Tibetan
// record. If lookup is nil or fails, rec is returned unchanged.
func EnrichWithObservance(ctx context.Context, rec TibetanDateRecord, date time.Time, lookup ObservanceLookup, logger *slog.Logger) TibetanDateRecord {
	if lookup == nil {
		return rec
	}

	obs, err := lookup.LookupObservance(ctx, date)
	if err != nil {
		logger.Warn("observance lookup failed",
			"date", date.Format(DateLayout),
			"error", err,
		)
		return rec
	}
	return ApplyObservance(rec, obs)
}

// ApplyObservance overlays the non-empty fields of obs onto rec.
func ApplyObservance(rec TibetanDateRecord, obs Observance) TibetanDateRecord {
	if obs.Observance != "" {
		rec.Observance = obs.Observance
	}
	if obs.MeritMultiplier != "" {
		rec.MeritMultiplier = obs.MeritMultiplier
	}
	if obs.SpecialEvent != "" {
		rec.SpecialEvent = obs.SpecialEvent
	}
	return rec
}
