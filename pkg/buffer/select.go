package buffer

// Select narrows streams for display. Streams whose name fails match are
// skipped (a nil match keeps all). Each remaining series is cut to the
// closed interval [lo, hi] and then throttled.
func Select(streams Streams, match func(name string) bool, lo, hi, throttle int64) Streams {
	out := make(Streams)
	for name, s := range streams {
		if match != nil && !match(name) {
			continue
		}
		out[name] = Throttle(inRange(s, lo, hi), throttle)
	}
	return out
}

// Throttle keeps the first sample and then every sample at least throttle
// milliseconds after the previously kept one. A throttle of zero or less
// keeps everything.
func Throttle(s Stream, throttle int64) Stream {
	if throttle <= 0 || len(s) == 0 {
		return s
	}
	out := make(Stream, 0, len(s))
	last := s[0].Stamp
	out = append(out, s[0])
	for _, ev := range s[1:] {
		if ev.Stamp-last < throttle {
			continue
		}
		out = append(out, ev)
		last = ev.Stamp
	}
	return out
}

func inRange(s Stream, lo, hi int64) Stream {
	out := make(Stream, 0, len(s))
	for _, ev := range s {
		if ev.Stamp >= lo && ev.Stamp <= hi {
			out = append(out, ev)
		}
	}
	return out
}
