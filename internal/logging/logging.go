// Package logging provides per-subsystem loggers sharing one backend that
// writes to stdout and, optionally, a rotated log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags.
const (
	SubsysAPI    = "API"
	SubsysStore  = "STOR"
	SubsysSeed   = "SEED"
	SubsysWorker = "WRKR"
)

// Backend hands out subsystem loggers.
type Backend struct {
	stdOut          io.Writer
	logRotator      *rotator.Rotator
	bknd            *slog.Backend
	defaultLogLevel slog.Level
	logLevels       map[string]slog.Level

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

// NewBackend creates a backend. debugLevel is either a single level
// ("debug") or a comma separated list mixing a default level with
// subsys=level pairs ("info,STOR=debug").
func NewBackend(logFile, debugLevel string, stdOut io.Writer) (*Backend, error) {
	var logRotator *rotator.Rotator
	if logFile != "" {
		logDir, _ := filepath.Split(logFile)
		if logDir != "" {
			if err := os.MkdirAll(logDir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %v", err)
			}
		}
		var err error
		logRotator, err = rotator.New(logFile, 1024, false, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %v", err)
		}
	}

	b := &Backend{
		stdOut:          stdOut,
		logRotator:      logRotator,
		defaultLogLevel: slog.LevelInfo,
		logLevels:       make(map[string]slog.Level),
		loggers:         make(map[string]slog.Logger),
	}
	b.bknd = slog.NewBackend(b)

	for _, v := range strings.Split(debugLevel, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		fields := strings.Split(v, "=")
		switch len(fields) {
		case 1:
			level, ok := slog.LevelFromString(fields[0])
			if !ok {
				return nil, fmt.Errorf("unknown log level %q", fields[0])
			}
			b.defaultLogLevel = level
		case 2:
			level, ok := slog.LevelFromString(fields[1])
			if !ok {
				return nil, fmt.Errorf("unknown log level %q", fields[1])
			}
			b.logLevels[fields[0]] = level
		default:
			return nil, fmt.Errorf("unable to parse %q as subsys=level "+
				"debuglevel string", v)
		}
	}

	return b, nil
}

func (b *Backend) Write(p []byte) (int, error) {
	if b.stdOut != nil {
		b.stdOut.Write(p)
	}
	if b.logRotator != nil {
		b.logRotator.Write(p)
	}
	return len(p), nil
}

// Logger returns the logger for subsys, creating it on first use.
func (b *Backend) Logger(subsys string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.loggers[subsys]; ok {
		return l
	}

	l := b.bknd.Logger(subsys)
	if level, ok := b.logLevels[subsys]; ok {
		l.SetLevel(level)
	} else {
		l.SetLevel(b.defaultLogLevel)
	}
	b.loggers[subsys] = l
	return l
}

// Close flushes and closes the log file, if any.
func (b *Backend) Close() error {
	if b.logRotator != nil {
		return b.logRotator.Close()
	}
	return nil
}
