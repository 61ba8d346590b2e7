package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu           sync.Mutex
	globalLogger *log.Logger
)

// Init builds a logger for debug, info, warn or error and makes it the
// package default.
func Init(level string) (*log.Logger, error) {
	return InitWriter(os.Stderr, level)
}

func InitWriter(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	l := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	})

	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
	log.SetDefault(l)
	return l, nil
}

func Get() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil {
		return log.Default()
	}
	return globalLogger
}
