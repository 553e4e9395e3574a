package config

import (
	"encoding/json"
	"os"

	"tripvault/internal/flagx"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into
// the runtime Config struct.
type JsonConfig struct {
	DatabaseDir       string `json:"database_dir"`
	DatabaseFile      string `json:"database_file"`
	EncryptionEnabled *bool  `json:"encryption_enabled"`
	PassphraseEnv     string `json:"passphrase_env"`
	AuditLogCap       int    `json:"audit_log_cap"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config flags; when
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics: a config the operator pointed at explicitly must not be half
// applied.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDir != "" {
		config.DatabaseDir = c.DatabaseDir
	}
	if c.DatabaseFile != "" {
		config.DatabaseFile = c.DatabaseFile
	}
	if c.EncryptionEnabled != nil {
		config.EncryptionEnabled = *c.EncryptionEnabled
	}
	if c.PassphraseEnv != "" {
		config.PassphraseEnv = c.PassphraseEnv
	}
	if c.AuditLogCap > 0 {
		config.AuditLogCap = c.AuditLogCap
	}
}
