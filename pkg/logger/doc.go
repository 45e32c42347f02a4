// Package logger provides a structured logging interface for the scraper.
//
// It wraps zerolog with:
//   - leveled methods (Debug, Info, Warn, Error, Fatal)
//   - structured fields via WithField/WithFields and the *WithFields methods
//   - pretty console output when stderr is a terminal, JSON lines otherwise
//   - optional mirroring into a log file
//   - a global instance (Initialize, GetLogger)
//
// Basic usage:
//
//	cfg := &config.LoggingConfig{Level: "info", File: "logs/ksscraper.log"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//	logger.GetLogger().WithField("key", "AI|live").Info("Discovery started")
//
// Components take a Logger in their constructors; tests pass NewNopLogger()
// or a NewTestLogger() and assert on the captured messages.
package logger
