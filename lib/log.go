package lib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogDirectory = "logs"
	LogFileName  = "log"
)

/*
	This file implements a leveled logger (Debug, Info, Warn, Error, Fatal) with colored output.
	Output goes to any io.Writer; by default stdout plus an auto-rotating log file in the data directory.
	A module tag may be attached so that block execution, rpc and store logs are distinguishable.
*/

// LoggerI defines the interface for various logging levels and formatted output
type LoggerI interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithModule(module string) LoggerI
}

const (
	DebugLevel int32 = -4
	InfoLevel  int32 = 0
	WarnLevel  int32 = 4
	ErrorLevel int32 = 8
)

type logColor int

const (
	white logColor = iota
	red
	green
	yellow
	blue
	gray
)

var _ LoggerI = &Logger{}

// LoggerConfig holds configuration settings for the logger, including logging level and output writer
type LoggerConfig struct {
	Level int32 `json:"level"`
	Out   io.Writer
}

// Logger is the concrete implementation of LoggerI
type Logger struct {
	config LoggerConfig
	module string
}

func (l *Logger) Debug(msg string) { l.log(DebugLevel, blue, "DEBUG", msg) }
func (l *Logger) Info(msg string)  { l.log(InfoLevel, green, "INFO", msg) }
func (l *Logger) Warn(msg string)  { l.log(WarnLevel, yellow, "WARN", msg) }
func (l *Logger) Error(msg string) { l.log(ErrorLevel, red, "ERROR", msg) }

// Fatal() logs an error message and terminates the program
func (l *Logger) Fatal(msg string) {
	l.write(colorString(red, "FATAL: "+l.tag()+msg))
	os.Exit(1)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.Error(fmt.Sprintf(format, args...)) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.Fatal(fmt.Sprintf(format, args...)) }

// WithModule() returns a logger sharing the same output that prefixes every line with the module name
func (l *Logger) WithModule(module string) LoggerI {
	return &Logger{config: l.config, module: module}
}

// log() writes the message if the configured level permits it
func (l *Logger) log(level int32, c logColor, label, msg string) {
	if l.config.Level > level {
		return
	}
	l.write(colorString(c, label+": "+l.tag()+msg))
}

// tag() returns the module prefix
func (l *Logger) tag() string {
	if l.module == "" {
		return ""
	}
	return "[" + l.module + "] "
}

// write() outputs the log message with a timestamp to the configured writer
func (l *Logger) write(msg string) {
	timeColored := colorString(gray, time.Now().Format(time.StampMilli))
	if _, err := fmt.Fprintf(l.config.Out, "%s %s\n", timeColored, msg); err != nil {
		fmt.Println("logger write failed:", err.Error())
	}
}

// NewLogger() creates a new Logger instance with the specified configuration and optional data directory path
func NewLogger(config LoggerConfig, dataDirPath ...string) LoggerI {
	if config.Out == nil {
		dir := DefaultDataDirPath()
		if len(dataDirPath) != 0 && dataDirPath[0] != "" {
			dir = dataDirPath[0]
		}
		logPath := filepath.Join(dir, LogDirectory, LogFileName)
		if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(filepath.Join(dir, LogDirectory), os.ModePerm); err != nil {
				panic(err)
			}
		}
		config.Out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // megabytes
			MaxBackups: 100,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	return &Logger{config: config}
}

// NewDefaultLogger() creates a Logger with default settings, logging at the Debug level to stdout
func NewDefaultLogger() LoggerI {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: os.Stdout})
}

// NewNullLogger() creates a Logger that discards all log output
func NewNullLogger() LoggerI {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: io.Discard})
}

// colorString() returns a string with color applied, preserving line breaks
func colorString(c logColor, msg string) string {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		lines[i] = cString(c, line)
	}
	return strings.Join(lines, "\n")
}

// cString() returns a string with a specific color applied
func cString(c logColor, msg string) string {
	switch c {
	case blue:
		return color.BlueString(msg)
	case red:
		return color.RedString(msg)
	case yellow:
		return color.YellowString(msg)
	case green:
		return color.GreenString(msg)
	case gray:
		return color.HiBlackString(msg)
	default:
		return color.WhiteString(msg)
	}
}
