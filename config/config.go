// Package config loads and validates the fixed set of knobs that shape a
// storage engine instance: buffer pool size, LRU-K's history length, the
// B+-tree's leaf/internal fan-out, and a hash bucket size. A
// Config is a struct of tagged defaults, optionally overlaid by a TOML
// document on disk, validated once, and never mutated afterward.
package config

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/Think5UP/bustub-private/bptree"
	"github.com/Think5UP/bustub-private/common"
)

// Config fixes the shape of a storage engine instance. Every field is set
// once, at load time, and never changed afterward; nothing in buffer,
// bptree, replacer, or hashtable accepts a Config mutation after
// construction.
type Config struct {
	// PoolSize is the number of frames the buffer pool holds.
	PoolSize int `toml:"pool_size"`
	// ReplacerK is the LRU-K history length: the number of accesses a
	// frame must accumulate before it leaves the all-history "preferred
	// victim" list and starts competing on true recency.
	ReplacerK int `toml:"replacer_k"`
	// KeySize is the fixed byte width of the primary index's keys.
	KeySize int `toml:"key_size"`
	// LeafMaxSize is the maximum live entry count for a B+-tree leaf.
	LeafMaxSize int `toml:"leaf_max_size"`
	// InternalMaxSize is the maximum live entry count for a B+-tree
	// internal node.
	InternalMaxSize int `toml:"internal_max_size"`
	// HashBucketSize is a per-bucket capacity for an extendible hash
	// table. It is loaded and validated but not passed to the buffer pool:
	// buffer.New builds its page table with a fixed bucket capacity of 64.
	HashBucketSize int `toml:"hash_bucket_size"`
	// PageSize is the fixed page size in bytes. It must equal
	// common.PageSize; the field exists so a config document is
	// self-describing and a mismatch is caught as a load error rather
	// than silently truncating pages.
	PageSize int `toml:"page_size"`
	// DataFile is the path to the backing block device file. Empty means
	// the caller wants an in-memory device (tests, transient indexes).
	DataFile string `toml:"data_file"`
	// IndexName is the name this storage engine's root B+-tree index is
	// registered under on the header page.
	IndexName string `toml:"index_name"`
	// LogLevel names the logger's minimum level ("debug", "info", "warn",
	// "error").
	LogLevel string `toml:"log_level"`
}

// Default returns the production defaults: a pool large enough for real
// workloads and wide internal/leaf fan-out to keep trees shallow.
func Default() Config {
	return Config{
		PoolSize:        64,
		ReplacerK:       2,
		KeySize:         8,
		LeafMaxSize:     253,
		InternalMaxSize: 255,
		HashBucketSize:  4,
		PageSize:        common.PageSize,
		DataFile:        "",
		IndexName:       "default",
		LogLevel:        "info",
	}
}

// Load reads a TOML document at path, overlaying its fields onto
// Default(), and validates the result. A missing file is not an error:
// Load returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first structural problem with cfg, or nil if every
// field is within range. Load always validates; callers constructing a
// Config by hand (tests exercising non-default shapes) should call this
// too before handing it to buffer.New/bptree.New.
func (c Config) Validate() error {
	switch {
	case c.PoolSize <= 0:
		return errors.New("config: pool_size must be positive")
	case c.ReplacerK <= 0:
		return errors.New("config: replacer_k must be positive")
	case c.KeySize <= 0:
		return errors.New("config: key_size must be positive")
	case c.LeafMaxSize < 2:
		return errors.New("config: leaf_max_size must be >= 2")
	case c.InternalMaxSize < 3:
		return errors.New("config: internal_max_size must be >= 3")
	case c.HashBucketSize <= 0:
		return errors.New("config: hash_bucket_size must be positive")
	case c.PageSize != common.PageSize:
		return errors.Errorf("config: page_size must be %d, got %d", common.PageSize, c.PageSize)
	case c.IndexName == "":
		return errors.New("config: index_name must not be empty")
	case c.LeafMaxSize > bptree.MaxLeafSize(c.KeySize):
		return errors.Errorf("config: leaf_max_size %d does not fit a page for key_size %d (max %d)",
			c.LeafMaxSize, c.KeySize, bptree.MaxLeafSize(c.KeySize))
	case c.InternalMaxSize > bptree.MaxInternalSize(c.KeySize):
		return errors.Errorf("config: internal_max_size %d does not fit a page for key_size %d (max %d)",
			c.InternalMaxSize, c.KeySize, bptree.MaxInternalSize(c.KeySize))
	default:
		return nil
	}
}
