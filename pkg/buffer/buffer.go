package buffer

import (
	"sort"

	"github.com/mabitter/tractor-sub000/pkg/types"
)

// Stream is the time series of one (type, name) pair
type Stream []types.TimestampedEvent

// Streams maps stream names to their series
type Streams map[string]Stream

// Buffer holds decoded events keyed by payload type, then stream name.
// Series are only appended to or sliced, never mutated in place.
type Buffer map[types.TypeID]Streams

// Append adds one event, creating the type and stream entries on first use
func (b Buffer) Append(id types.TypeID, name string, ev types.TimestampedEvent) {
	streams, ok := b[id]
	if !ok {
		streams = make(Streams)
		b[id] = streams
	}
	streams[name] = append(streams[name], ev)
}

// Merge appends every series of src to b. Each incoming series is sorted
// first; when it starts before the tail already committed in b, the
// combined series is rebuilt in order.
func (b Buffer) Merge(src Buffer) {
	for id, streams := range src {
		for name, in := range streams {
			if len(in) == 0 {
				continue
			}
			sortStream(in)

			dst, ok := b[id]
			if !ok {
				dst = make(Streams)
				b[id] = dst
			}
			cur := dst[name]
			if len(cur) > 0 && in[0].Stamp < cur[len(cur)-1].Stamp {
				merged := make(Stream, 0, len(cur)+len(in))
				merged = append(merged, cur...)
				merged = append(merged, in...)
				sortStream(merged)
				dst[name] = merged
				continue
			}
			dst[name] = append(cur, in...)
		}
	}
}

// SortAll orders every series by stamp
func (b Buffer) SortAll() {
	for _, streams := range b {
		for _, s := range streams {
			sortStream(s)
		}
	}
}

// Evict drops every event stamped before horizon. Series must be sorted.
// Emptied streams and types are removed. It returns the smallest stamp
// still retained and whether anything was retained at all, along with the
// number of events evicted.
func (b Buffer) Evict(horizon int64) (minStamp int64, ok bool, evicted int) {
	for id, streams := range b {
		for name, s := range streams {
			i := sort.Search(len(s), func(i int) bool { return s[i].Stamp >= horizon })
			evicted += i
			if i == len(s) {
				delete(streams, name)
				continue
			}
			if i > 0 {
				streams[name] = s[i:]
			}
			if !ok || s[i].Stamp < minStamp {
				minStamp, ok = s[i].Stamp, true
			}
		}
		if len(streams) == 0 {
			delete(b, id)
		}
	}
	return minStamp, ok, evicted
}

// Clone returns a copy whose maps and series can be modified independently.
// Decoded messages are shared; they are never mutated after decoding.
func (b Buffer) Clone() Buffer {
	out := make(Buffer, len(b))
	for id, streams := range b {
		cp := make(Streams, len(streams))
		for name, s := range streams {
			cp[name] = append(Stream(nil), s...)
		}
		out[id] = cp
	}
	return out
}

// TypeIDs returns the payload types present, sorted
func (b Buffer) TypeIDs() []types.TypeID {
	ids := make([]types.TypeID, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Streams returns the series recorded for a type, or nil
func (b Buffer) Streams(id types.TypeID) Streams {
	return b[id]
}

// Len returns the number of streams and events held
func (b Buffer) Len() (streams, events int) {
	for _, ss := range b {
		streams += len(ss)
		for _, s := range ss {
			events += len(s)
		}
	}
	return streams, events
}

// Names returns the stream names of a Streams map, sorted
func (s Streams) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortStream(s Stream) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Stamp < s[j].Stamp })
}
