package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// LegEstimate is a provider-reported road distance and drive time for one
// origin/destination pair.
type LegEstimate struct {
	DistanceKm      float64
	DurationMinutes int
}

// DirectionsProvider reports road distance and drive time between two
// points. Implementations must honor ctx deadlines; callers treat any error
// as a signal to fall back to great-circle estimates.
type DirectionsProvider interface {
	Distance(ctx context.Context, origin, dest model.GeoPoint) (LegEstimate, error)
}

// HTTPDirections talks to an OpenRouteService-compatible directions API.
// Requests are rate limited and retried once on transient failures.
type HTTPDirections struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPDirections builds a provider client. timeout bounds each request
// round trip; rps caps outbound request rate.
func NewHTTPDirections(baseURL, apiKey string, timeout time.Duration, rps float64) *HTTPDirections {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &HTTPDirections{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"` // [lng, lat] pairs
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"` // meters
			Duration float64 `json:"duration"` // seconds
		} `json:"summary"`
	} `json:"routes"`
}

// Distance implements DirectionsProvider.
func (d *HTTPDirections) Distance(ctx context.Context, origin, dest model.GeoPoint) (LegEstimate, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return LegEstimate{}, fmt.Errorf("directions rate limit: %w", err)
	}
	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{{origin.Lng, origin.Lat}, {dest.Lng, dest.Lat}},
	})
	if err != nil {
		return LegEstimate{}, fmt.Errorf("directions encode: %w", err)
	}
	body, err := d.doWithRetry(ctx, payload)
	if err != nil {
		return LegEstimate{}, err
	}
	var out directionsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return LegEstimate{}, fmt.Errorf("directions decode: %w", err)
	}
	if len(out.Routes) == 0 {
		return LegEstimate{}, fmt.Errorf("directions: empty response")
	}
	sum := out.Routes[0].Summary
	return LegEstimate{
		DistanceKm:      sum.Distance / 1000.0,
		DurationMinutes: int(sum.Duration/60.0 + 0.5),
	}, nil
}

// doWithRetry sends the request, retrying once on 429/5xx or transport
// errors with a short backoff.
func (d *HTTPDirections) doWithRetry(ctx context.Context, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v2/directions/driving-car", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("directions request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if d.apiKey != "" {
			req.Header.Set("Authorization", d.apiKey)
		}
		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("directions call: %w", err)
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("directions read: %w", err)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("directions status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("directions status %d", resp.StatusCode)
		}
		return body, nil
	}
	return nil, lastErr
}
