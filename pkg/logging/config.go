package logging

const (
	BaseDataDir = "data"
	LogsDir     = "logs"
	TimeFormat  = "2006-01-02 15:04:05"
)

type LogLevel string

const (
	Development LogLevel = "development" // prints debug and above
	Production  LogLevel = "production"  // prints info and above
)

// ProcessName type to ensure valid process names
type ProcessName string

const (
	ExecutorProcess ProcessName = "executor"
)

type LoggerConfig struct {
	LogDir      string
	ProcessName ProcessName
	Environment LogLevel
	UseColors   bool
}

func NewDefaultConfig(processName ProcessName) LoggerConfig {
	return LoggerConfig{
		LogDir:      BaseDataDir,
		ProcessName: processName,
		Environment: Development,
		UseColors:   true,
	}
}
