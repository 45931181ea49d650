// Package mathx holds the deterministic hashing and integer helpers the
// procedural systems draw their "randomness" from. Nothing here touches
// math/rand or the clock: identical inputs give identical outputs on every
// platform and every release.
package mathx

// Purpose tags keep independent procedural streams decorrelated even when
// they hash the same indices.
const (
	TagOreReveal   uint32 = 0x4f524556 // "OREV"
	TagOreRenew    uint32 = 0x4f52454e // "OREN"
	TagOreSkip     uint32 = 0x4f534b50 // "OSKP"
	TagOreType     uint32 = 0x4f545950 // "OTYP"
	TagOreRichness uint32 = 0x4f524943 // "ORIC"
	TagRaid        uint32 = 0x52414944 // "RAID"
	TagTerrain     uint32 = 0x5445524e // "TERN"
)

// Hash64 is the 64-bit splitmix finalizer.
func Hash64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Mix folds a seed, a purpose tag and any number of indices into one
// 64-bit value. Order of indices matters.
func Mix(seed uint64, tag uint32, indices ...int64) uint64 {
	h := Hash64(seed ^ (uint64(tag) * 0x9e3779b97f4a7c15))
	for i, v := range indices {
		h ^= Hash64(uint64(v) + uint64(i+1)*0x85ebca6b)
		h = Hash64(h)
	}
	return h
}
