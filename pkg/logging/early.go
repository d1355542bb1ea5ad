package logging

import (
	"fmt"
	"os"
)

// EarlyLog writes to stderr/stdout before the structured logger is configured.
type EarlyLog struct {
	service string
}

func NewEarlyLog(service string) *EarlyLog {
	return &EarlyLog{service: service}
}

func (l *EarlyLog) prefix(level string) string {
	if l.service == "" {
		return level + ": "
	}
	return fmt.Sprintf("%s [%s]: ", level, l.service)
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, l.prefix("ERROR")+msg+"\n", args...)
	os.Exit(1)
}

func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, l.prefix("FATAL")+msg+"\n", args...)
	os.Exit(1)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, l.prefix("WARN")+msg+"\n", args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, l.prefix("INFO")+msg+"\n", args...)
}
