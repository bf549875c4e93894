package logger

// Console configures console output, used in docker and dev setups.
type Console struct {
	Enabled          bool `toml:"enabled"`
	UseConsoleWriter bool `toml:"useConsoleWriter"`
}

// LogFile configures rolling file output for non-docker deployments. Each
// level writes to its own file so error logs can be shipped separately.
type LogFile struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`

	AccessLog        string `toml:"access"`
	AccessMaxSize    int    `toml:"accessMaxSize"`
	AccessMaxBackups int    `toml:"accessMaxBackups"`
	AccessMaxAge     int    `toml:"accessMaxAge"`

	ErrorLog        string `toml:"error"`
	ErrorMaxSize    int    `toml:"errorMaxSize"`
	ErrorMaxBackups int    `toml:"errorMaxBackups"`
	ErrorMaxAge     int    `toml:"errorMaxAge"`

	InfoLog        string `toml:"info"`
	InfoMaxSize    int    `toml:"infoMaxSize"`
	InfoMaxBackups int    `toml:"infoMaxBackups"`
	InfoMaxAge     int    `toml:"infoMaxAge"`

	TraceLog        string `toml:"trace"`
	TraceMaxSize    int    `toml:"traceMaxSize"`
	TraceMaxBackups int    `toml:"traceMaxBackups"`
	TraceMaxAge     int    `toml:"traceMaxAge"`

	WarnLog        string `toml:"warn"`
	WarnMaxSize    int    `toml:"warnMaxSize"`
	WarnMaxBackups int    `toml:"warnMaxBackups"`
	WarnMaxAge     int    `toml:"warnMaxAge"`
}

// Log is the logger configuration.
type Log struct {
	LogLevel string `toml:"logLevel"` // trace, debug, info, warn, error.
	LogEnv   string `toml:"logEnv"`

	// EnableAccessLogToConsole enables HTTP access logging on the console.
	// Does not overrule Console.Enabled: if that is false, no access log
	// output is shown either.
	EnableAccessLogToConsole bool `toml:"enableAccessLogToConsole"`
	ReportCaller             bool `toml:"reportCaller"`
	DisableHealthLog         bool `toml:"disableHealthLog"` // do not access-log health probe calls

	AppName     string `toml:"appName"`
	ServiceName string `toml:"serviceName"`

	Console Console `toml:"console"`
	File    LogFile `toml:"file"`
}
