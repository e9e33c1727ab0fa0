package config

import "flag"

var (
	flagConfig          = flag.String("config", "", "Path to config file")
	flagDebug           = flag.Bool("debug", false, "Enable debug logging")
	flagLevel           = flag.Int("level", -1, "Refinement level (0-8)")
	flagDerivativesOnly = flag.Bool("derivatives-only", false, "Keep control positions, emit limit tangents (level 0 only)")
	flagBoundary        = flag.String("boundary", "", "Boundary interpolation: edge-and-corner or edge-only")
	flagWorkers         = flag.Int("workers", 0, "Parts refined in parallel (0 = GOMAXPROCS)")
	flagOutput          = flag.String("output", "", "Output OBJ path")
	flagNoNormals       = flag.Bool("no-normals", false, "Do not write vertex normals")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ParseArgs parses flags from args instead of os.Args, for tools that take
// a subcommand before their flags.
func ParseArgs(args []string) error {
	return flag.CommandLine.Parse(args)
}

// Args returns the non-flag command-line arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLevel >= 0 {
		cfg.Refine.Level = *flagLevel
	}
	if *flagDerivativesOnly {
		cfg.Refine.DerivativesOnly = true
	}
	if *flagBoundary != "" {
		cfg.Refine.Boundary = *flagBoundary
	}
	if *flagWorkers > 0 {
		cfg.Refine.Workers = *flagWorkers
	}
	if *flagOutput != "" {
		cfg.Output.Path = *flagOutput
	}
	if *flagNoNormals {
		cfg.Output.WriteNormals = false
	}
}
