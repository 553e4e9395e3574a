package config

import (
	"flag"
	"os"

	"tripvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   database directory
//	-f string   database file name
//	-e bool     enable field encryption
//	-p string   name of the env var holding the passphrase
//	-n int      audit log cap (retained entries)
//
// The function first filters os.Args to only the flags it recognizes
// using flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-f", "-e", "-p", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDir, "d", config.DatabaseDir, "database directory")
	fs.StringVar(&config.DatabaseFile, "f", config.DatabaseFile, "database file name")
	fs.BoolVar(&config.EncryptionEnabled, "e", config.EncryptionEnabled, "enable field encryption")
	fs.StringVar(&config.PassphraseEnv, "p", config.PassphraseEnv, "env var holding the passphrase")
	fs.IntVar(&config.AuditLogCap, "n", config.AuditLogCap, "audit log cap")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
