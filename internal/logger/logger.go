package logger

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	infoLogger  = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	warnLogger  = log.New(os.Stdout, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	debugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)

	debugEnabled atomic.Bool
)

func init() {
	debugEnabled.Store(os.Getenv("ENVIRONMENT") == "development")
}

// SetDebug turns debug output on or off.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetOutput redirects every level to w. Used by tests to silence or capture logs.
func SetOutput(w io.Writer) {
	for _, l := range []*log.Logger{infoLogger, warnLogger, errorLogger, debugLogger} {
		l.SetOutput(w)
	}
}

func Info(format string, v ...interface{}) {
	_ = infoLogger.Output(2, sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	_ = warnLogger.Output(2, sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	_ = errorLogger.Output(2, sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	if debugEnabled.Load() {
		_ = debugLogger.Output(2, sprintf(format, v...))
	}
}
