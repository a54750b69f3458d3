package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophgallery/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-u string   public domain used to compose artifact URLs
//	-r string   database driver (sqlite|postgres)
//	-d string   database DSN
//	-s string   storage root directory
//	-l string   log level
//
// Args are filtered with flagx.FilterArgs first so -c and foreign flags do
// not break parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-u", "-r", "-d", "-s", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "address and port to run server")
	fs.StringVar(&cfg.PublicDomain, "u", cfg.PublicDomain, "public domain for artifact URLs")
	fs.StringVar(&cfg.Database.Driver, "r", cfg.Database.Driver, "database driver")
	fs.StringVar(&cfg.Database.DSN, "d", cfg.Database.DSN, "database DSN")
	fs.StringVar(&cfg.Storage.Path, "s", cfg.Storage.Path, "storage root directory")
	fs.StringVar(&cfg.Log.Level, "l", cfg.Log.Level, "log level")

	return fs.Parse(args)
}
