package state

import (
	"encoding/json"
	"sort"
	"time"
)

// DedupeMap maps an opaque event key to the unix-millisecond timestamp at
// which it was last seen. One map per feed namespace.
type DedupeMap map[string]int64

// Seen reports whether key has been recorded. Pure lookup.
func (m DedupeMap) Seen(key string) bool {
	_, ok := m[key]
	return ok
}

// Record stores the last-seen timestamp for key. Idempotent.
func (m DedupeMap) Record(key string, now int64) {
	m[key] = now
}

// Purge removes entries older than ttl, then evicts oldest-first down to
// maxKeys. After purge, len(m) <= maxKeys and every retained entry is within
// ttl of now. Idempotent.
func (m DedupeMap) Purge(now int64, ttl time.Duration, maxKeys int) {
	ttlMs := ttl.Milliseconds()
	for k, ts := range m {
		if now-ts > ttlMs {
			delete(m, k)
		}
	}

	if len(m) <= maxKeys {
		return
	}

	type entry struct {
		key string
		ts  int64
	}
	entries := make([]entry, 0, len(m))
	for k, ts := range m {
		entries = append(entries, entry{k, ts})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ts < entries[j].ts })

	for _, e := range entries[:len(entries)-maxKeys] {
		delete(m, e.key)
	}
}

// UnmarshalJSON tolerates the legacy on-disk format where values were the
// boolean true instead of timestamps. Legacy and malformed values coerce to
// the load-time clock so they age out through the normal TTL path.
func (m *DedupeMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	out := make(DedupeMap, len(raw))
	for k, v := range raw {
		var ts int64
		if err := json.Unmarshal(v, &ts); err == nil {
			out[k] = ts
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			out[k] = int64(f)
			continue
		}
		out[k] = now
	}
	*m = out
	return nil
}
