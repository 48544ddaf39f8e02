package engine

import (
	"math"
	"strings"
)

// ComputeShadowTiming reconciles one legacy sample against an optional
// telemetry sample.
//
// Inputs are coerced to non-negative values and oldDead/oldDenied are clamped
// to [0, timePlayed]. The plausible cap for dead time is timePlayed, lowered
// to roundDuration when one is known.
//
// A nil telemetryDead returns the clamped legacy values with missingReason
// (ReasonMissingForGUIDPrefix when empty). Otherwise the telemetry value is
// clamped to [0, cap] and denied playtime is rescaled by the change in alive
// time: denied/oldActive*newActive, clamped to [0, newActive]. The rescale
// assumes the legacy denied/alive ratio still holds, so the new denied value
// is an estimate.
func ComputeShadowTiming(timePlayed, oldDead, oldDenied int, telemetryDead, roundDuration *int, missingReason string) ComputedShadowTiming {
	played := nonNegative(timePlayed)
	dead := clamp(oldDead, 0, played)
	denied := clamp(oldDenied, 0, played)

	capLimit := played
	if roundDuration != nil {
		capLimit = min(capLimit, nonNegative(*roundDuration))
	}

	if telemetryDead == nil {
		if missingReason == "" {
			missingReason = ReasonMissingForGUIDPrefix
		}
		return ComputedShadowTiming{
			NewDeadSeconds:    dead,
			NewDeniedPlaytime: denied,
			CapLimitSeconds:   capLimit,
			FallbackReason:    missingReason,
		}
	}

	raw := *telemetryDead
	var tags []string

	newDead := raw
	if newDead < 0 {
		newDead = 0
		tags = append(tags, ReasonDeadNegativeClamped)
	}
	if newDead > capLimit {
		newDead = capLimit
		tags = append(tags, ReasonDeadCapped)
	}

	return ComputedShadowTiming{
		NewDeadSeconds:    newDead,
		NewDeniedPlaytime: rescaleDenied(played, dead, denied, newDead),
		CapLimitSeconds:   capLimit,
		TelemetryDeadRaw:  &raw,
		FallbackReason:    joinReasons(tags),
	}
}

// rescaleDenied keeps the legacy denied/alive ratio after a dead-time correction.
func rescaleDenied(played, oldDead, oldDenied, newDead int) int {
	oldActive := played - oldDead
	newActive := played - newDead
	if oldActive <= 0 {
		return clamp(oldDenied, 0, newActive)
	}

	// Multiply first so exact ratios such as 42*200/140 stay exact.
	scaled := int(math.RoundToEven(float64(oldDenied) * float64(newActive) / float64(oldActive)))
	return clamp(scaled, 0, newActive)
}

func joinReasons(tags []string) string {
	var kept []string
	for _, tag := range tags {
		if tag != "" && tag != ReasonNone {
			kept = append(kept, tag)
		}
	}
	if len(kept) == 0 {
		return ReasonNone
	}
	return strings.Join(kept, ReasonSeparator)
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
