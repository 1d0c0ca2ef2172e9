package pipeline

import (
	"context"
	"math"
	"testing"

	"campaignmap/internal/config"
	"campaignmap/internal/templates"
)

func testConfig() config.Config {
	return config.Config{
		SampleSize:             100,
		TypeDetectThreshold:    0.7,
		TemplateMatchThreshold: 0.6,
		TemplateSelection:      config.SelectFirstMatch,
	}
}

func builtinRegistry(t *testing.T) *templates.Registry {
	t.Helper()
	return templates.NewRegistry(context.Background(), nil)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

var googleAdsHeaders = []string{"Campaign", "Day", "Impressions", "Clicks", "Conversions", "Cost"}
