package aggregator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"forex-autotrader/internal/store"
	"forex-autotrader/internal/types"
)

const weightTolerance = 1e-9

// Aggregate combines the five engine signals into one Decision for a symbol.
// The same signals, config, and timestamp always produce the same Decision:
// no randomness, no map-iteration ordering, ties resolve to hold.
func Aggregate(symbol string, signals map[types.EngineKind]types.Signal, cfg store.Config, now time.Time) types.Decision {
	d := types.Decision{
		Symbol:         symbol,
		Timestamp:      now,
		WeightedScores: make(map[types.EngineKind]float64, len(types.AllEngines)),
	}

	weights, normalized := normalizedWeights(cfg)
	if normalized {
		d.WarningFlags = append(d.WarningFlags, types.FlagWeightsUnnormalized)
	}

	var buyMass, sellMass float64
	for _, kind := range types.AllEngines {
		sig := signals[kind]
		w := weights[kind]
		contribution := sig.Score * w
		d.WeightedScores[kind] = contribution
		d.FinalConfidence += contribution

		switch sig.Direction {
		case types.DirectionBuy:
			buyMass += contribution
		case types.DirectionSell:
			sellMass += contribution
		}
	}

	d.PrimaryReasons = primaryReasons(signals, d.WeightedScores)
	d.WarningFlags = append(d.WarningFlags, conflictFlags(signals)...)
	d.WarningFlags = append(d.WarningFlags, staleFlags(signals, cfg, now)...)

	switch {
	case d.FinalConfidence < cfg.MinConfidenceLevel:
		d.Action = types.ActionHold
		d.WarningFlags = append(d.WarningFlags, types.FlagLowConfidence)
	case buyMass > sellMass:
		d.Action = types.ActionBuy
	case sellMass > buyMass:
		d.Action = types.ActionSell
	default:
		// Exactly equal weighted mass: favor inaction over an arbitrary pick.
		d.Action = types.ActionHold
	}

	return d
}

// normalizedWeights returns per-engine weights scaled to sum to 1 and whether
// scaling was needed.
func normalizedWeights(cfg store.Config) (map[types.EngineKind]float64, bool) {
	out := make(map[types.EngineKind]float64, len(types.AllEngines))
	sum := cfg.WeightSum()
	if sum <= 0 {
		// Validation rejects this upstream; degenerate configs degrade to
		// equal weights rather than dividing by zero.
		for _, kind := range types.AllEngines {
			out[kind] = 1.0 / float64(len(types.AllEngines))
		}
		return out, true
	}
	needsScaling := math.Abs(sum-1.0) > weightTolerance
	for _, kind := range types.AllEngines {
		w := cfg.WeightFor(kind)
		if needsScaling {
			w /= sum
		}
		out[kind] = w
	}
	return out, needsScaling
}

// primaryReasons renders the rationales of the top two engines by weighted
// contribution. Ordering ties break by the fixed engine order.
func primaryReasons(signals map[types.EngineKind]types.Signal, contributions map[types.EngineKind]float64) []string {
	kinds := append([]types.EngineKind(nil), types.AllEngines...)
	sort.SliceStable(kinds, func(i, j int) bool {
		return contributions[kinds[i]] > contributions[kinds[j]]
	})

	reasons := make([]string, 0, 2)
	for _, kind := range kinds[:2] {
		sig := signals[kind]
		reasons = append(reasons, fmt.Sprintf("%s: %s", kind, sig.Rationale))
	}
	return reasons
}

// conflictFlags reports strongly opposed engines: two directional votes above
// 60 pointing opposite ways.
func conflictFlags(signals map[types.EngineKind]types.Signal) []string {
	var strongBuy, strongSell bool
	for _, kind := range types.AllEngines {
		sig := signals[kind]
		if sig.Score <= 60 {
			continue
		}
		switch sig.Direction {
		case types.DirectionBuy:
			strongBuy = true
		case types.DirectionSell:
			strongSell = true
		}
	}
	if strongBuy && strongSell {
		return []string{types.FlagEngineConflict}
	}
	return nil
}

// staleFlags marks the decision when any input signal is older than twice the
// analysis interval.
func staleFlags(signals map[types.EngineKind]types.Signal, cfg store.Config, now time.Time) []string {
	maxAge := 2 * cfg.AnalysisInterval()
	for _, kind := range types.AllEngines {
		sig := signals[kind]
		if !sig.At.IsZero() && now.Sub(sig.At) > maxAge {
			return []string{types.FlagStaleSignal}
		}
	}
	return nil
}
