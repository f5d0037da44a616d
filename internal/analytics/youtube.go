package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"golang.org/x/time/rate"
)

var ErrNoCredential = errors.New("no credential for provider")

// YouTubeProvider reads the authenticated channel's statistics.
type YouTubeProvider struct {
	BaseURL string
}

func (p YouTubeProvider) Name() string { return "youtube" }

type youtubeChannels struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			ViewCount       string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (p YouTubeProvider) Fetch(ctx context.Context, _ string, cred *credentials.Credential, client *http.Client, limiter *rate.Limiter) (Audience, error) {
	if cred == nil || !cred.Usable() {
		return Audience{}, ErrNoCredential
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return Audience{}, err
		}
	}
	base := p.BaseURL
	if base == "" {
		base = "https://www.googleapis.com/youtube/v3"
	}
	q := url.Values{}
	q.Set("part", "statistics")
	q.Set("mine", "true")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/channels?"+q.Encode(), nil)
	if err != nil {
		return Audience{}, err
	}
	req.Header.Set("Accept", "application/json")

	httpClient := credentials.HTTPClient(ctx, nil, cred, client)
	res, err := httpClient.Do(req)
	if err != nil {
		return Audience{}, err
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Audience{}, fmt.Errorf("youtube_channels_non_2xx status=%d body=%s", res.StatusCode, truncate(string(body), 600))
	}

	var parsed youtubeChannels
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Audience{}, err
	}
	if len(parsed.Items) == 0 {
		return Audience{}, fmt.Errorf("youtube_channels_empty")
	}
	stats := parsed.Items[0].Statistics
	subs, _ := strconv.ParseInt(stats.SubscriberCount, 10, 64)
	views, _ := strconv.ParseFloat(stats.ViewCount, 64)
	return Audience{Count: subs, Views: views, Source: "youtube"}, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
