package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TEMPLATE_SELECTION", "first")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.TypeDetectThreshold)
	assert.Equal(t, 0.6, cfg.TemplateMatchThreshold)
	assert.Equal(t, SelectFirstMatch, cfg.TemplateSelection)
	assert.Equal(t, "csv_mapping_templates", cfg.TemplateStoreKey)
	assert.Equal(t, 100, cfg.SampleSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TEMPLATE_SELECTION", "BEST")
	t.Setenv("TEMPLATE_MATCH_THRESHOLD", "0.75")
	t.Setenv("SAMPLE_SIZE", "not-a-number")
	t.Setenv("IMAP_SECURE", "off")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SelectBestMatch, cfg.TemplateSelection)
	assert.Equal(t, 0.75, cfg.TemplateMatchThreshold)
	assert.Equal(t, 100, cfg.SampleSize)
	assert.False(t, cfg.IMAPSecure)
}

func TestLoadRejectsUnknownSelection(t *testing.T) {
	t.Setenv("TEMPLATE_SELECTION", "random")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPLATE_SELECTION")
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("TEMPLATE_SELECTION", "first")
	t.Setenv("TEMPLATE_STORE", "etcd")

	_, err := Load()
	require.Error(t, err)
}
