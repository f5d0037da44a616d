package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
)

// Networks in reporting order.
var Networks = []string{"twitter", "linkedin", "instagram", "youtube"}

// CredentialFunc returns the linked credential for a network, or nil.
type CredentialFunc func(network string) *credentials.Credential

func handleFor(p models.SocialProfiles, network string) string {
	switch network {
	case "twitter":
		return p.Twitter
	case "linkedin":
		return p.LinkedIn
	case "instagram":
		return p.Instagram
	case "youtube":
		return p.YouTube
	}
	return ""
}

// Collect fetches every non-empty profile and builds the dashboard summary.
// A failing API provider falls back to simulated numbers for that network.
func (r *Runner) Collect(ctx context.Context, profiles models.SocialProfiles, creds CredentialFunc) models.SocialStats {
	r.EnsureDefaults()
	out := models.SocialStats{Platforms: map[string]models.PlatformStats{}}
	var totalFollowers int64
	var totalViews float64

	for _, network := range Networks {
		handle := handleFor(profiles, network)
		if handle == "" {
			continue
		}
		start := time.Now()
		aud := r.fetch(ctx, network, handle, creds)
		r.Logger.Printf("[SocialStats] done provider=%s source=%s count=%d dur=%s", network, aud.Source, aud.Count, time.Since(start))

		ps := models.PlatformStats{Views: aud.Views, Source: aud.Source}
		switch network {
		case "linkedin":
			ps.Connections = aud.Count
		case "youtube":
			ps.Subscribers = aud.Count
		default:
			ps.Followers = aud.Count
		}
		out.Platforms[network] = ps
		totalFollowers += aud.Count
		totalViews += aud.Views
	}

	out.TotalFollowers = FormatCount(float64(totalFollowers))
	out.TotalViews = FormatCount(totalViews)
	out.EngagementRate = EngagementRate(totalFollowers)
	return out
}

func (r *Runner) fetch(ctx context.Context, network, handle string, creds CredentialFunc) Audience {
	sim := SimulatedProvider{Network: network}
	p, ok := r.Providers[network]
	if !ok || p == nil {
		aud, _ := sim.Fetch(ctx, handle, nil, nil, nil)
		return aud
	}
	var cred *credentials.Credential
	if creds != nil {
		cred = creds(network)
	}
	aud, err := p.Fetch(ctx, handle, cred, r.Client, r.limiterForProvider(network))
	if err != nil {
		if !errors.Is(err, ErrNoCredential) {
			r.Logger.Printf("[SocialStats] provider failed, using simulated provider=%s err=%v", network, err)
		}
		aud, _ = sim.Fetch(ctx, handle, nil, nil, nil)
	}
	return aud
}

// FormatCount renders 1.2M, 3.4k, or the plain number below a thousand.
func FormatCount(n float64) string {
	switch {
	case n >= 1_000_000:
		return oneDecimal(n/1_000_000) + "M"
	case n >= 1000:
		return oneDecimal(n/1000) + "k"
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}

// oneDecimal rounds exact ties up, as the dashboard's toFixed(1) does. %.1f
// alone rounds them to even (1.25 -> "1.2").
func oneDecimal(x float64) string {
	if q := x * 4; q == math.Trunc(q) && math.Mod(q, 2) == 1 {
		x = math.Ceil(x*10) / 10
	}
	return fmt.Sprintf("%.1f", x)
}

// EngagementRate is a stable pseudo rate between 1.0% and 4.9%.
func EngagementRate(totalFollowers int64) string {
	if totalFollowers <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(SimulatedCount("engagement", 10, 50))/10)
}
