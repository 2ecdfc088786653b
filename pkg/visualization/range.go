package visualization

import (
	"time"

	"github.com/mabitter/tractor-sub000/pkg/types"
)

// RangeFractions returns the scrub window as fractions of the buffer range
func (s *Store) RangeFractions() (start, end float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rangeStart, s.rangeEnd
}

// SetBufferRangeStart moves the start of the scrub window. Values outside
// [0, 1] or not before the current end are rejected, leaving both bounds
// untouched.
func (s *Store) SetBufferRangeStart(x float64) bool {
	s.mu.Lock()
	if x < 0 || x > 1 || x >= s.rangeEnd {
		s.mu.Unlock()
		return false
	}
	s.rangeStart = x
	s.mu.Unlock()

	s.notify()
	return true
}

// SetBufferRangeEnd moves the end of the scrub window. Values outside
// [0, 1] or not after the current start are rejected.
func (s *Store) SetBufferRangeEnd(x float64) bool {
	s.mu.Lock()
	if x < 0 || x > 1 || x <= s.rangeStart {
		s.mu.Unlock()
		return false
	}
	s.rangeEnd = x
	s.mu.Unlock()

	s.notify()
	return true
}

// RangeDates maps the scrub window onto absolute times by linear
// interpolation over the observed buffer range. Both are zero when nothing
// has been observed.
func (s *Store) RangeDates() (start, end time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasRange {
		return time.Time{}, time.Time{}
	}
	lo, hi := s.rangeMillisLocked()
	return types.FromMillis(lo), types.FromMillis(hi)
}

// rangeMillisLocked requires s.mu
func (s *Store) rangeMillisLocked() (lo, hi int64) {
	span := float64(s.bufferEnd - s.bufferStart)
	lo = s.bufferStart + int64(span*s.rangeStart)
	hi = s.bufferStart + int64(span*s.rangeEnd)
	return lo, hi
}

// Throttle returns the minimum spacing between displayed samples
func (s *Store) Throttle() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.throttle) * time.Millisecond
}

// SetThrottle sets the display throttle. Negative values are rejected.
func (s *Store) SetThrottle(d time.Duration) bool {
	if d < 0 {
		return false
	}
	s.mu.Lock()
	s.throttle = d.Milliseconds()
	s.mu.Unlock()

	s.notify()
	return true
}

// ExpirationWindow returns how much live history is retained
func (s *Store) ExpirationWindow() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.expiration) * time.Millisecond
}

// SetExpirationWindow sets the live retention window, applied from the
// next frame. Windows shorter than a millisecond are rejected.
func (s *Store) SetExpirationWindow(d time.Duration) bool {
	if d < time.Millisecond {
		return false
	}
	s.mu.Lock()
	s.expiration = d.Milliseconds()
	s.mu.Unlock()

	s.notify()
	return true
}
