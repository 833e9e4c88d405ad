package config

// Output format selectors.
const (
	FormatArray = "array"
	FormatLines = "lines"
)

const (
	defaultLogDir          = "~/.local/share/csvwatch/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultEncoding        = "utf-8-sig"
	defaultQuietPeriodMS   = 1000
	defaultPollIntervalMS  = 2000
	defaultShutdownGraceMS = 10000
	defaultWorkerCount     = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Output: Output{
			Format: FormatArray,
		},
		CSV: CSV{
			Encoding: defaultEncoding,
		},
		Timing: Timing{
			QuietPeriodMS:   defaultQuietPeriodMS,
			PollIntervalMS:  defaultPollIntervalMS,
			ShutdownGraceMS: defaultShutdownGraceMS,
		},
		Workers: Workers{
			Count: defaultWorkerCount,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
			Dir:    defaultLogDir,
		},
	}
}
