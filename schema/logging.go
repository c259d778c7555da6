package schema

// LoggingLevel follows the syslog severities used by MCP logging.
type LoggingLevel string

const (
	LoggingLevelDebug     LoggingLevel = "debug"
	LoggingLevelInfo      LoggingLevel = "info"
	LoggingLevelNotice    LoggingLevel = "notice"
	LoggingLevelWarning   LoggingLevel = "warning"
	LoggingLevelError     LoggingLevel = "error"
	LoggingLevelCritical  LoggingLevel = "critical"
	LoggingLevelAlert     LoggingLevel = "alert"
	LoggingLevelEmergency LoggingLevel = "emergency"
)

var loggingLevelOrdinal = map[LoggingLevel]int{
	LoggingLevelDebug:     0,
	LoggingLevelInfo:      1,
	LoggingLevelNotice:    2,
	LoggingLevelWarning:   3,
	LoggingLevelError:     4,
	LoggingLevelCritical:  5,
	LoggingLevelAlert:     6,
	LoggingLevelEmergency: 7,
}

// Ordinal returns the severity rank; unknown levels rank as info.
func (l LoggingLevel) Ordinal() int {
	if ordinal, ok := loggingLevelOrdinal[l]; ok {
		return ordinal
	}
	return loggingLevelOrdinal[LoggingLevelInfo]
}

// Valid reports whether the level is a known severity.
func (l LoggingLevel) Valid() bool {
	_, ok := loggingLevelOrdinal[l]
	return ok
}
