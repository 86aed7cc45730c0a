// Package timemap implements the bijection between output ("effective")
// time and source time that trimming induces.
package timemap

import (
	"sort"

	xerrors "github.com/clipforge/exportcore/internal/errors"
)

// TimeInterval is a half-open interval of source time, in microseconds.
type TimeInterval struct {
	StartUS int64
	EndUS   int64
}

func (t TimeInterval) len() int64 {
	return t.EndUS - t.StartUS
}

// TrimSet is an ordered set of TimeIntervals. Normalize sorts and merges
// overlapping or abutting intervals; all other TimeMap operations assume a
// normalized set.
type TrimSet []TimeInterval

// Normalize returns a new TrimSet sorted by StartUS with overlapping or
// abutting (within 1us) intervals merged.
func (ts TrimSet) Normalize() TrimSet {
	if len(ts) == 0 {
		return nil
	}
	sorted := make(TrimSet, len(ts))
	copy(sorted, ts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartUS < sorted[j].StartUS })

	merged := make(TrimSet, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.StartUS <= cur.EndUS {
			if next.EndUS > cur.EndUS {
				cur.EndUS = next.EndUS
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)
	return merged
}

// TimeMap translates output frame indices to source sample times given a
// fixed frame period and a normalized TrimSet.
type TimeMap struct {
	framePeriodUS int64
	trims         TrimSet
}

// New constructs a TimeMap, normalizing trims internally.
func New(framePeriodUS int64, trims TrimSet) *TimeMap {
	return &TimeMap{
		framePeriodUS: framePeriodUS,
		trims:         trims.Normalize(),
	}
}

// FramePeriodUS returns the configured frame period.
func (m *TimeMap) FramePeriodUS() int64 {
	return m.framePeriodUS
}

// Trims returns the normalized trim set backing this TimeMap.
func (m *TimeMap) Trims() TrimSet {
	return m.trims
}

// EffectiveDurationUS returns the output duration given a source duration,
// i.e. the source duration with every trim interval excised.
func (m *TimeMap) EffectiveDurationUS(sourceDurationUS int64) (int64, error) {
	var trimmed int64
	for _, t := range m.trims {
		trimmed += t.len()
	}
	eff := sourceDurationUS - trimmed
	if eff < 0 {
		return 0, xerrors.NewInvalidSpecError("trims exceed source duration")
	}
	return eff, nil
}

// TotalFrames returns the number of output frames for a source duration:
// ceil(effective_duration_us / frame_period_us).
func (m *TimeMap) TotalFrames(sourceDurationUS int64) (int64, error) {
	eff, err := m.EffectiveDurationUS(sourceDurationUS)
	if err != nil {
		return 0, err
	}
	if m.framePeriodUS <= 0 {
		return 0, xerrors.NewInvalidSpecError("frame period must be positive")
	}
	return ceilDiv(eff, m.framePeriodUS), nil
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// SourceTimeOf maps an effective timestamp to the source timestamp it
// samples, skipping over every trimmed interval encountered along the way.
// Scans normalized trims in ascending order; for each trim whose start lies
// at or before the running candidate, the trim's length is added.
func (m *TimeMap) SourceTimeOf(effectiveTSUS int64) int64 {
	candidate := effectiveTSUS
	for _, t := range m.trims {
		if t.StartUS <= candidate {
			candidate += t.len()
		}
	}
	return candidate
}
