package config

import (
	"flag"

	"github.com/dmitrijs2005/cartsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string         Postgres DSN of the hosted backend
//	-auth string      base URL of the hosted auth endpoint
//	-key string       public api key for the auth endpoint
//	-promote duration recently-completed -> archived threshold
//	-sweep duration   recurrence sweep cadence
//	-seed string      JSON seed file for Local Mode
//	-log string       log level
//
// Arguments are filtered to the known flags first (flagx.FilterArgs) so the
// -c/-config flags handled elsewhere do not trip the FlagSet.
func parseFlags(cfg *Config, args []string) {
	filtered := flagx.FilterArgs(args, []string{"-d", "-auth", "-key", "-promote", "-sweep", "-seed", "-log"})

	fs := flag.NewFlagSet("cartsync", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "Postgres DSN of the hosted backend")
	fs.StringVar(&cfg.AuthURL, "auth", cfg.AuthURL, "base URL of the hosted auth endpoint")
	fs.StringVar(&cfg.AuthAnonKey, "key", cfg.AuthAnonKey, "public api key for the auth endpoint")
	fs.DurationVar(&cfg.PromoteAfter, "promote", cfg.PromoteAfter, "recently-completed to archived threshold")
	fs.DurationVar(&cfg.SweepInterval, "sweep", cfg.SweepInterval, "recurrence sweep cadence")
	fs.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "JSON seed file for local mode")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")

	if err := fs.Parse(filtered); err != nil {
		panic(err)
	}
}
