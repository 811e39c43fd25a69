package logger

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"
)

// logEntry is a log message bound for the backend's write goroutine, already
// formatted and tagged with its level for per-writer filtering.
type logEntry struct {
	log   []byte
	level Level
}

// Logger is a subsystem logger. All messages are formatted here and handed to
// the owning Backend, which serializes writes across subsystems.
type Logger struct {
	lvl       Level // atomic through Level/SetLevel
	tag       string
	b         *Backend
	writeChan chan<- logEntry
}

// Level returns the current logging level.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32((*uint32)(&l.lvl)))
}

// SetLevel changes the logging level. Messages below the new level are
// filtered.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32((*uint32)(&l.lvl), uint32(level))
}

func (l *Logger) write(level Level, format string, args ...interface{}) {
	if level < l.Level() {
		return
	}
	if !l.b.IsRunning() {
		// Nothing consumes writeChan before Run; drop to stderr so messages
		// during early startup are not silently lost.
		_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
		return
	}

	t := time.Now()
	var message string
	if format == "" {
		message = fmt.Sprint(args...)
	} else {
		message = fmt.Sprintf(format, args...)
	}

	buf := make([]byte, 0, normalLogSize)
	buf = append(buf, t.Format("2006-01-02 15:04:05.000")...)
	buf = append(buf, " ["...)
	buf = append(buf, level.String()...)
	buf = append(buf, "] "...)
	buf = append(buf, l.tag...)
	if l.b.flag&(LogFlagShortFile|LogFlagLongFile) != 0 {
		file, line := callsite(l.b.flag)
		buf = append(buf, ' ')
		buf = append(buf, fmt.Sprintf("%s:%d", file, line)...)
	}
	buf = append(buf, ": "...)
	buf = append(buf, message...)
	buf = append(buf, '\n')

	l.writeChan <- logEntry{log: buf, level: level}
}

// callsite returns the file name and line of the logging callsite, honoring
// the short/long file flags.
func callsite(flag uint32) (string, int) {
	// Skip write, the exported level method and runtime.Caller itself.
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		return "???", 0
	}
	if flag&LogFlagShortFile != 0 {
		for i := len(file) - 1; i > 0; i-- {
			if os.IsPathSeparator(file[i]) {
				file = file[i+1:]
				break
			}
		}
	}
	return file, line
}

// Tracef formats message according to format specifier and writes to the
// backend with LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.write(LevelTrace, format, args...)
}

// Debugf formats message according to format specifier and writes to the
// backend with LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write(LevelDebug, format, args...)
}

// Infof formats message according to format specifier and writes to the
// backend with LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(LevelInfo, format, args...)
}

// Warnf formats message according to format specifier and writes to the
// backend with LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write(LevelWarn, format, args...)
}

// Errorf formats message according to format specifier and writes to the
// backend with LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(LevelError, format, args...)
}

// Criticalf formats message according to format specifier and writes to the
// backend with LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, format, args...)
}

// Trace writes its operands with LevelTrace.
func (l *Logger) Trace(args ...interface{}) {
	l.write(LevelTrace, "", args...)
}

// Debug writes its operands with LevelDebug.
func (l *Logger) Debug(args ...interface{}) {
	l.write(LevelDebug, "", args...)
}

// Info writes its operands with LevelInfo.
func (l *Logger) Info(args ...interface{}) {
	l.write(LevelInfo, "", args...)
}

// Warn writes its operands with LevelWarn.
func (l *Logger) Warn(args ...interface{}) {
	l.write(LevelWarn, "", args...)
}

// Error writes its operands with LevelError.
func (l *Logger) Error(args ...interface{}) {
	l.write(LevelError, "", args...)
}

// Critical writes its operands with LevelCritical.
func (l *Logger) Critical(args ...interface{}) {
	l.write(LevelCritical, "", args...)
}
