package main

import "flag"

var (
	flagSilent, flagVerbose, flagSuppressTimestamps, flagGops, flagVersion bool
	flagConfigFile, flagServiceIDs                                         string
)

func cliInit() {
	flag.BoolVar(&flagSilent, "s", false, "Lower log level to warnings")
	flag.BoolVar(&flagSilent, "silent", false, "Lower log level to warnings")
	flag.BoolVar(&flagVerbose, "v", false, "Raise log level to debug")
	flag.BoolVar(&flagVerbose, "verbose", false, "Raise log level to debug")
	flag.BoolVar(&flagSuppressTimestamps, "suppress-log-timestamps", false, "Omit timestamps from log output, for journald-style hosts")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagVersion, "version", false, "Show version information and exit")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Path to the configuration file")
	flag.StringVar(&flagServiceIDs, "i", "", "Restrict which services the wiring layer spawns (comma separated ids); the core itself ignores this flag")
	flag.Parse()
}
