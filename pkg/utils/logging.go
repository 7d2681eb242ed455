package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLogging sends the global logger to a rotated file in logDir, and to
// stderr as well if console logging is enabled.
func InitLogging(cfg *config.UserConfig, logDir string) error {
	logFile := filepath.Join(logDir, config.LogFilename)

	err := os.MkdirAll(filepath.Dir(logFile), 0755)
	if err != nil {
		return err
	}

	var BaseLogWriters = []io.Writer{&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    1,
		MaxBackups: 2,
	}}

	if cfg.GetConsoleLogging() {
		BaseLogWriters = append(BaseLogWriters, zerolog.ConsoleWriter{Out: os.Stderr})
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	log.Logger = log.Output(io.MultiWriter(BaseLogWriters...))

	if cfg.GetDebug() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return nil
}
