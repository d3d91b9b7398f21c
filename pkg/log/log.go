// Package log provides a simple way of logging with different levels.
//
// Uses these prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var suppressTimestamps bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
	CritWriter  io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[DEBUG]    "
	InfoPrefix  string = "<6>[INFO]     "
	WarnPrefix  string = "<4>[WARNING]  "
	ErrPrefix   string = "<3>[ERROR]    "
	CritPrefix  string = "<2>[CRITICAL] "
)

var (
	// With Time/Date (default)
	DebugTimeLog *log.Logger = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	InfoTimeLog  *log.Logger = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	WarnTimeLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.LstdFlags)
	ErrTimeLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Lshortfile)
	CritTimeLog  *log.Logger = log.New(CritWriter, CritPrefix, log.LstdFlags|log.Llongfile)
	// No Time/Date, for hosts (journald, systemd) that add their own.
	DebugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, 0)
	ErrLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Lshortfile)
	CritLog  *log.Logger = log.New(CritWriter, CritPrefix, log.Llongfile)
)

/* CONFIG */

// SetLevel gates the writers of levels below lvl to io.Discard.
// "warn" corresponds to -s/--silent, "debug" to -v/--verbose.
func SetLevel(lvl string) {
	switch lvl {
	case "crit":
		ErrWriter = io.Discard
		fallthrough
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// nothing discarded
	default:
		fmt.Printf("log: invalid level %q, using 'info'\n", lvl)
		SetLevel("info")
	}
}

// SuppressTimestamps turns off the date/time prefix, for journald-style
// hosts that add their own (the --suppress-log-timestamps flag).
func SuppressTimestamps(suppress bool) {
	suppressTimestamps = suppress
}

func Debug(v ...interface{})                 { emit(DebugWriter, DebugLog, DebugTimeLog, fmt.Sprint(v...)) }
func Info(v ...interface{})                  { emit(InfoWriter, InfoLog, InfoTimeLog, fmt.Sprint(v...)) }
func Warn(v ...interface{})                  { emit(WarnWriter, WarnLog, WarnTimeLog, fmt.Sprint(v...)) }
func Error(v ...interface{})                 { emit(ErrWriter, ErrLog, ErrTimeLog, fmt.Sprint(v...)) }
func Crit(v ...interface{})                  { emit(CritWriter, CritLog, CritTimeLog, fmt.Sprint(v...)) }
func Debugf(format string, v ...interface{}) { emit(DebugWriter, DebugLog, DebugTimeLog, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { emit(InfoWriter, InfoLog, InfoTimeLog, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { emit(WarnWriter, WarnLog, WarnTimeLog, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { emit(ErrWriter, ErrLog, ErrTimeLog, fmt.Sprintf(format, v...)) }

// Fatal logs at error level and terminates the process with a non-zero exit code.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

func emit(w io.Writer, plain, withTime *log.Logger, out string) {
	if w == io.Discard {
		return
	}
	if suppressTimestamps {
		plain.Output(3, out)
	} else {
		withTime.Output(3, out)
	}
}
