package logger

import (
	"fmt"
	"strings"
)

// Level is a log severity. Loggers drop messages below their level.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelTrace || l > LevelError {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses trace, debug, info, warn or error, ignoring case and
// surrounding space.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q, must be one of: trace, debug, info, warn, error", s)
}

// levelOrInfo is ParseLevel with a fallback to LevelInfo.
func levelOrInfo(s string) Level {
	level, err := ParseLevel(s)
	if err != nil {
		return LevelInfo
	}
	return level
}
