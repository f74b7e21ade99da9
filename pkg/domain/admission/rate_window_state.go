package admission

import "time"

// RateWindowState is the ordered log of admitted request times for one key.
type RateWindowState struct {
	Timestamps []time.Time `json:"timestamps"`
}

func NewRateWindowState(timestamps ...time.Time) RateWindowState {
	return RateWindowState{Timestamps: append([]time.Time(nil), timestamps...)}
}

// Compact drops every entry that is at least window old relative to now and
// reports how many were removed.
func (s *RateWindowState) Compact(now time.Time, window time.Duration) int {
	kept := s.Timestamps[:0]
	for _, ts := range s.Timestamps {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	removed := len(s.Timestamps) - len(kept)
	s.Timestamps = kept
	return removed
}

// CountWithin returns the number of entries younger than window.
func (s RateWindowState) CountWithin(now time.Time, window time.Duration) int {
	count := 0
	for _, ts := range s.Timestamps {
		if now.Sub(ts) < window {
			count++
		}
	}
	return count
}

func (s *RateWindowState) Record(now time.Time) {
	s.Timestamps = append(s.Timestamps, now)
}

func (s RateWindowState) Len() int {
	return len(s.Timestamps)
}

func (s RateWindowState) Clone() RateWindowState {
	return NewRateWindowState(s.Timestamps...)
}

// UnixSeconds converts the log to fractional seconds since epoch, the format
// used by persisted snapshots.
func (s RateWindowState) UnixSeconds() []float64 {
	out := make([]float64, len(s.Timestamps))
	for i, ts := range s.Timestamps {
		out[i] = float64(ts.UnixNano()) / float64(time.Second)
	}
	return out
}

func RateWindowStateFromUnixSeconds(values []float64) RateWindowState {
	ts := make([]time.Time, len(values))
	for i, v := range values {
		ts[i] = time.Unix(0, int64(v*float64(time.Second)))
	}
	return RateWindowState{Timestamps: ts}
}
