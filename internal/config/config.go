// Package config handles configuration for the travel-document store,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the store.
//
// Fields:
//   - DatabaseDir: directory holding the SQLite file (created on open).
//   - DatabaseFile: file name of the database inside DatabaseDir.
//   - EncryptionEnabled: whether sensitive columns are encrypted at rest.
//   - PassphraseEnv: name of the environment variable holding the
//     encryption passphrase. The passphrase itself never appears in
//     config files or flags.
//   - AuditLogCap: retained audit entries; the oldest are trimmed on write.
type Config struct {
	DatabaseDir       string
	DatabaseFile      string
	EncryptionEnabled bool
	PassphraseEnv     string
	AuditLogCap       int
}

// LoadDefaults populates Config with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDir = "data"
	c.DatabaseFile = "tripvault.db"
	c.EncryptionEnabled = true
	c.PassphraseEnv = "TRIPVAULT_PASSPHRASE"
	c.AuditLogCap = 1000
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
