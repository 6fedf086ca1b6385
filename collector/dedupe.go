// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/zeebo/blake3"
)

// dedupeKey builds the semantic suppression key for a candidate.
// Events that are equivalent for the downstream consumer share a key:
//
//   - numeric changes key on the value's bucket (width
//     Policy.BucketWidth), so a charge drifting within one bucket
//     re-keys identically,
//   - status and position changes key on the ordered from/to pair,
//     so a transition and its reverse never mask each other,
//   - every other type keys on type and device alone.
//
// The assembled key material is hashed with BLAKE3 and truncated to
// 16 hex characters so cache keys stay fixed-size no matter how long
// device IDs and waypoint names get.
func (c *Collector) dedupeKey(deviceKey string, cand candidate) string {
	var material string
	switch payload := cand.payload.(type) {
	case NumericChangePayload:
		// The bucket index, not a rounded value: widths below 1 would
		// otherwise truncate to zero and merge every bucket.
		bucket := int(math.Floor(payload.To / c.policy.BucketWidth))
		material = fmt.Sprintf("%s:%s:%s:%d", cand.eventType, deviceKey, payload.Attribute, bucket)
	case StatusChangePayload:
		material = fmt.Sprintf("%s:%s:%s->%s", cand.eventType, deviceKey, payload.From, payload.To)
	case PositionChangePayload:
		material = fmt.Sprintf("%s:%s:%s->%s", cand.eventType, deviceKey, payload.From, payload.To)
	default:
		material = fmt.Sprintf("%s:%s", cand.eventType, deviceKey)
	}

	digest := blake3.Sum256([]byte(material))
	return hex.EncodeToString(digest[:8])
}

// shouldSuppress applies the tiered rate-limit policy: NOISE is
// always suppressed, CRITICAL never, and everything else is
// suppressed while its key sits inside the tier's window.
func (c *Collector) shouldSuppress(key string, tier Tier, now time.Time) bool {
	if tier == TierNoise {
		return true
	}
	if tier == TierCritical {
		return false
	}
	lastEmit, seen := c.dedupe[key]
	if !seen {
		return false
	}
	return now.Sub(lastEmit) < c.policy.window(tier)
}

// pruneDedupe drops cache entries older than twice the dedupe window.
// Called from maintenance so the cache stays bounded by the active
// key set.
func (c *Collector) pruneDedupe(now time.Time) {
	maxAge := 2 * c.policy.Windows.Dedupe
	for key, lastEmit := range c.dedupe {
		if now.Sub(lastEmit) > maxAge {
			delete(c.dedupe, key)
		}
	}
}
