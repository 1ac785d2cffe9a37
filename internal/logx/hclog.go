package logx

import (
	"fmt"
	"io"
	"log"

	"github.com/hashicorp/go-hclog"
)

// HCLogAdapter bridges hashicorp/raft's hclog.Logger interface onto the
// package-level leveled sink so raft.Config.Logger writes through the
// same output and color handling as the rest of the program.
type HCLogAdapter struct {
	name string
}

// NewHCLogAdapter returns an hclog.Logger usable as raft.Config.Logger.
func NewHCLogAdapter(name string) hclog.Logger {
	return &HCLogAdapter{name: name}
}

func (a *HCLogAdapter) format(msg string, args []interface{}) string {
	if a.name != "" {
		msg = a.name + ": " + msg
	}
	for i := 0; i+1 < len(args); i += 2 {
		msg += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	return msg
}

func (a *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Debug, hclog.Trace:
		Debug("%s", a.format(msg, args))
	case hclog.Warn:
		Warn("%s", a.format(msg, args))
	case hclog.Error:
		Error("%s", a.format(msg, args))
	default:
		Info("%s", a.format(msg, args))
	}
}

func (a *HCLogAdapter) Trace(msg string, args ...interface{}) { a.Log(hclog.Trace, msg, args...) }
func (a *HCLogAdapter) Debug(msg string, args ...interface{}) { a.Log(hclog.Debug, msg, args...) }
func (a *HCLogAdapter) Info(msg string, args ...interface{})  { a.Log(hclog.Info, msg, args...) }
func (a *HCLogAdapter) Warn(msg string, args ...interface{})  { a.Log(hclog.Warn, msg, args...) }
func (a *HCLogAdapter) Error(msg string, args ...interface{}) { a.Log(hclog.Error, msg, args...) }

func (a *HCLogAdapter) IsTrace() bool { return Level() <= LogLevelDebug }
func (a *HCLogAdapter) IsDebug() bool { return Level() <= LogLevelDebug }
func (a *HCLogAdapter) IsInfo() bool  { return Level() <= LogLevelInfo }
func (a *HCLogAdapter) IsWarn() bool  { return Level() <= LogLevelWarn }
func (a *HCLogAdapter) IsError() bool { return Level() <= LogLevelError }

func (a *HCLogAdapter) ImpliedArgs() []interface{} { return nil }

func (a *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	return &HCLogAdapter{name: a.format(a.name, args)}
}

func (a *HCLogAdapter) Name() string { return a.name }

func (a *HCLogAdapter) Named(name string) hclog.Logger {
	if a.name == "" {
		return &HCLogAdapter{name: name}
	}
	return &HCLogAdapter{name: a.name + "." + name}
}

func (a *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	return &HCLogAdapter{name: name}
}

func (a *HCLogAdapter) SetLevel(level hclog.Level) {
	switch level {
	case hclog.Trace, hclog.Debug:
		SetLevel(LogLevelDebug)
	case hclog.Warn:
		SetLevel(LogLevelWarn)
	case hclog.Error:
		SetLevel(LogLevelError)
	default:
		SetLevel(LogLevelInfo)
	}
}

func (a *HCLogAdapter) GetLevel() hclog.Level {
	switch Level() {
	case LogLevelDebug:
		return hclog.Debug
	case LogLevelWarn:
		return hclog.Warn
	case LogLevelError:
		return hclog.Error
	default:
		return hclog.Info
	}
}

func (a *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.Default()
}

func (a *HCLogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return log.Writer()
}
