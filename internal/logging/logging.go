// Package logging builds the process logger and the channel log files.
//
// The process logger is a zap logger.  Channels are named append-only files
// under a log directory (reqLog.log, errLog.log, ...); each line carries a
// timestamp and a unique id.  Writing to a channel never fails the caller.
package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Channel names used by the service.
const (
	RequestChannel = "reqLog.log"
	ErrorChannel   = "errLog.log"
	DBErrorChannel = "dbErrLog.log"
	EventChannel   = "eventLog.log"
)

// New returns a zap logger: production config in prod, development otherwise.
func New(prod bool) (*zap.Logger, error) {
	if prod {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// EventLogger writes a message to a named channel.
type EventLogger interface {
	Log(channel, message string)
}

// Channels is an EventLogger backed by rotating files in Dir.
type Channels struct {
	Dir    string
	Logger *zap.Logger

	now     func() time.Time
	newID   func() string
	open    func(path string) io.WriteCloser
	mu      sync.Mutex
	writers map[string]io.WriteCloser
}

// NewChannels returns Channels writing under dir.  logger receives write
// failures; it may be nil.
func NewChannels(dir string, logger *zap.Logger) *Channels {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channels{
		Dir:     dir,
		Logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
		open:    openRotating,
		writers: make(map[string]io.WriteCloser),
	}
}

func openRotating(path string) io.WriteCloser {
	// lumberjack creates the directory on first write.
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
}

// FormatLine renders one channel line: "yyyyMMdd\tHH:mm:ss\t<id>\t<message>\n".
func FormatLine(t time.Time, id, message string) string {
	return fmt.Sprintf("%s\t%s\t%s\n", t.Format("20060102\t15:04:05"), id, message)
}

// Log appends message to channel.  Errors are reported to the zap logger
// and otherwise swallowed.
func (c *Channels) Log(channel, message string) {
	name := filepath.Base(strings.TrimSpace(channel))
	if name == "" || name == "." || name == string(filepath.Separator) {
		c.Logger.Warn("log channel rejected", zap.String("channel", channel))
		return
	}
	line := FormatLine(c.now(), c.newID(), message)

	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.writers[name]
	if !ok {
		w = c.open(filepath.Join(c.Dir, name))
		c.writers[name] = w
	}
	if _, err := io.WriteString(w, line); err != nil {
		c.Logger.Error("log channel write failed", zap.String("channel", name), zap.Error(err))
	}
}

// Close flushes and closes all open channel files.
func (c *Channels) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for name, w := range c.writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.writers, name)
	}
	return first
}

// Nop discards every message.
type Nop struct{}

func (Nop) Log(string, string) {}
