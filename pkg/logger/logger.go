package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	Red     = "\033[0;31m"
	Green   = "\033[0;32m"
	Yellow  = "\033[0;33m"
	Blue    = "\033[0;34m"
	Magenta = "\033[0;35m"
	Cyan    = "\033[0;36m"
	White   = "\033[0;37m"
	reset   = "\033[0m"
)

var (
	loggers  []*log.Logger
	disabled bool
	mu       sync.Mutex
)

// NewLogger builds up and return a new logger
func NewLogger(prefix string, color string) *log.Logger {
	var logger *log.Logger
	if isatty.IsTerminal(os.Stdout.Fd()) {
		logger = log.New(os.Stdout, fmt.Sprintf("%s%s%s", color, prefix, reset), log.LstdFlags)
	} else {
		logger = log.New(os.Stdout, prefix, log.LstdFlags)
	}

	mu.Lock()
	defer mu.Unlock()
	if disabled {
		logger.SetOutput(io.Discard)
	}
	loggers = append(loggers, logger)
	return logger
}

// DisableLoggers silences every logger built with NewLogger, including
// the ones created afterwards
func DisableLoggers() {
	mu.Lock()
	defer mu.Unlock()

	disabled = true
	for _, l := range loggers {
		l.SetOutput(io.Discard)
	}
}
