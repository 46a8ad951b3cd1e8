package config

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/simp-lee/logger"
)

// SetupLogger builds the process logger from cfg and installs it as the
// slog default, so request, report and SQL logs share one sink. The caller
// must Close the returned logger.
func SetupLogger(cfg *LogConfig) (*logger.Logger, error) {
	if cfg == nil {
		return nil, errors.New("log config is nil")
	}

	log, err := logger.New(BuildLoggerOpts(cfg)...)
	if err != nil {
		return nil, err
	}

	log.SetDefault()
	return log, nil
}

// BuildLoggerOpts translates cfg into logger options. Context attributes
// (request_id) are always attached. File output and its rotation settings are
// added only when a file path is configured. It returns nil for a nil cfg.
func BuildLoggerOpts(cfg *LogConfig) []logger.Option {
	if cfg == nil {
		return nil
	}

	format := outputFormat(cfg.Format)

	color := true
	if cfg.Color != nil {
		color = *cfg.Color
	}

	opts := []logger.Option{
		logger.WithLevel(parseLevel(cfg.Level)),
		logger.WithMiddleware(logger.ContextMiddleware()),
		logger.WithConsoleFormat(format),
		logger.WithConsoleColor(color),
	}

	if cfg.FilePath == "" {
		return opts
	}

	opts = append(opts, logger.WithFilePath(cfg.FilePath), logger.WithFileFormat(format))
	if cfg.MaxSizeMB > 0 {
		opts = append(opts, logger.WithMaxSizeMB(cfg.MaxSizeMB))
	}
	if cfg.RetentionDays > 0 {
		opts = append(opts, logger.WithRetentionDays(cfg.RetentionDays))
	}
	if cfg.MaxBackups > 0 {
		opts = append(opts, logger.WithMaxBackups(cfg.MaxBackups))
	}
	if cfg.CompressRotated != nil {
		opts = append(opts, logger.WithCompressRotated(*cfg.CompressRotated))
	}
	return opts
}

// outputFormat maps log.format; anything unrecognized uses the logger's
// custom console layout.
func outputFormat(s string) logger.OutputFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return logger.FormatText
	case "json":
		return logger.FormatJSON
	default:
		return logger.FormatCustom
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
