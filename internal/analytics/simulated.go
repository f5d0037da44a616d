package analytics

import (
	"context"
	"math"
	"net/http"
	"unicode/utf16"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"golang.org/x/time/rate"
)

// SimulatedCount maps s to a stable number in [min, max). It hashes the
// UTF-16 code units with the classic 31x string hash in 32-bit arithmetic, so
// the same handle always yields the same count.
func SimulatedCount(s string, min, max int64) int64 {
	if s == "" {
		return 0
	}
	var hash int32
	for _, u := range utf16.Encode([]rune(s)) {
		hash = (hash << 5) - hash + int32(u)
	}
	seed := math.Abs(float64(hash)) / 2147483647
	return int64(math.Floor(seed*float64(max-min) + float64(min)))
}

type audienceRange struct {
	min, max int64
	viewsPer float64
}

var simulatedRanges = map[string]audienceRange{
	"twitter":   {100, 5000, 3},
	"linkedin":  {50, 2000, 5},
	"instagram": {200, 10000, 0.8},
	"youtube":   {10, 5000, 15},
}

// SimulatedProvider derives numbers from the handle alone. It backs every
// network without an API integration and is the fallback for those with one.
type SimulatedProvider struct {
	Network string
}

func (p SimulatedProvider) Name() string { return p.Network }

func (p SimulatedProvider) Fetch(_ context.Context, handle string, _ *credentials.Credential, _ *http.Client, _ *rate.Limiter) (Audience, error) {
	rng, ok := simulatedRanges[p.Network]
	if !ok {
		rng = audienceRange{100, 1000, 1}
	}
	n := SimulatedCount(handle, rng.min, rng.max)
	return Audience{Count: n, Views: float64(n) * rng.viewsPer, Source: "simulated"}, nil
}
