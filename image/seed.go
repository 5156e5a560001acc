package image

import "math/rand/v2"

// MaxSeed is the exclusive upper bound shared by every provider.
const MaxSeed int64 = 1<<31 - 1

// RandomSeed returns a uniformly random seed in [0, MaxSeed).
func RandomSeed() int64 {
	return rand.Int64N(MaxSeed)
}

// ResolveSeed returns the caller's seed when present, otherwise a random one.
func ResolveSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return RandomSeed()
}
