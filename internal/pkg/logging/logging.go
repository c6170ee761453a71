package logging

import (
	log "github.com/ipfs/go-log/v2"
	"go.uber.org/zap/zapcore"
)

type StandardLogger = log.StandardLogger

func Logger(system string) log.StandardLogger {
	return log.Logger(system)
}

func LevelFromString(level string) (log.LogLevel, error) {
	if level == "" {
		return log.LevelInfo, nil
	}
	return log.LevelFromString(level)
}

func SetAllLoggers(lvl log.LogLevel) {
	log.SetAllLoggers(lvl)
}

func SetLogLevel(system string, level string) error {
	return log.SetLogLevel(system, level)
}

func SetPrimaryCore(core zapcore.Core) {
	log.SetPrimaryCore(core)
}
