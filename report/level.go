package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Level is the severity of a log entry. Higher values are more severe.
type Level int

const (
	LevelAll     Level = math.MinInt32
	LevelFinest  Level = 300
	LevelFiner   Level = 400
	LevelFine    Level = 500
	LevelConfig  Level = 700
	LevelInfo    Level = 800
	LevelWarning Level = 900
	LevelSevere  Level = 1000
	LevelOff     Level = math.MaxInt32
)

var levelNames = map[Level]string{
	LevelAll:     "ALL",
	LevelFinest:  "FINEST",
	LevelFiner:   "FINER",
	LevelFine:    "FINE",
	LevelConfig:  "CONFIG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelSevere:  "SEVERE",
	LevelOff:     "OFF",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return strconv.Itoa(int(l))
}

// ParseLevel accepts a level name (case-insensitive) or its integer value.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	for level, name := range levelNames {
		if strings.EqualFold(name, s) {
			return level, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return Level(n), nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
