package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_PassesValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysDocumentOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.toml")
	doc := `
pool_size = 128
replacer_k = 4
index_name = "catalog"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 128, cfg.PoolSize)
	require.Equal(t, 4, cfg.ReplacerK)
	require.Equal(t, "catalog", cfg.IndexName)
	// Untouched fields keep their default values.
	require.Equal(t, Default().LeafMaxSize, cfg.LeafMaxSize)
	require.Equal(t, Default().HashBucketSize, cfg.HashBucketSize)
}

func TestLoad_RejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.toml")
	doc := `pool_size = 0`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_RejectsEachOutOfRangeField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"pool size", func(c *Config) { c.PoolSize = 0 }},
		{"replacer k", func(c *Config) { c.ReplacerK = 0 }},
		{"key size", func(c *Config) { c.KeySize = 0 }},
		{"leaf max size", func(c *Config) { c.LeafMaxSize = 1 }},
		{"internal max size", func(c *Config) { c.InternalMaxSize = 2 }},
		{"hash bucket size", func(c *Config) { c.HashBucketSize = 0 }},
		{"page size", func(c *Config) { c.PageSize = 16384 }},
		{"index name", func(c *Config) { c.IndexName = "" }},
		{"leaf max size overflows page", func(c *Config) { c.LeafMaxSize = 1000 }},
		{"internal max size overflows page", func(c *Config) { c.InternalMaxSize = 1000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
