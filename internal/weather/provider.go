package weather

import (
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

// Risk levels reported by the weather collaborator.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
	RiskSevere   = "severe"
)

// Factor is one contribution to a weather impact assessment.
type Factor struct {
	Type        string `json:"type,omitempty"` // wind, precipitation, temperature, visibility
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
}

// Impact is a weather assessment for one representative coordinate.
type Impact struct {
	RiskLevel                string   `json:"riskLevel"`
	SafetyScore              int      `json:"safetyScore"` // 0-100
	SuggestedDelayMinutes    int      `json:"suggestedDelayMinutes,omitempty"`
	EquipmentRecommendations []string `json:"equipmentRecommendations,omitempty"`
	ImpactFactors            []Factor `json:"impactFactors,omitempty"`
}

// Provider is the external weather collaborator. Callers treat any error as
// a signal to degrade to the neutral summary.
type Provider interface {
	GetWeatherImpact(ctx context.Context, businessID string, center model.GeoPoint) (Impact, error)
	GetWeatherAlerts(ctx context.Context, businessID string) ([]model.WeatherAlert, error)
}

// HTTPProvider talks to the platform weather service over JSON.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPProvider builds a weather client. timeout bounds each round trip;
// rps caps outbound request rate.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, rps float64) *HTTPProvider {
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
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// GetWeatherImpact implements Provider.
func (p *HTTPProvider) GetWeatherImpact(ctx context.Context, businessID string, center model.GeoPoint) (Impact, error) {
	url := fmt.Sprintf("%s/v1/impact?businessId=%s&lat=%f&lng=%f", p.baseURL, businessID, center.Lat, center.Lng)
	var out Impact
	if err := p.getJSON(ctx, url, &out); err != nil {
		return Impact{}, err
	}
	return out, nil
}

// GetWeatherAlerts implements Provider.
func (p *HTTPProvider) GetWeatherAlerts(ctx context.Context, businessID string) ([]model.WeatherAlert, error) {
	var out struct {
		Alerts []model.WeatherAlert `json:"alerts"`
	}
	if err := p.getJSON(ctx, p.baseURL+"/v1/alerts?businessId="+businessID, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, url string, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("weather rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("weather request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("weather call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("weather read: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("weather decode: %w", err)
	}
	return nil
}
