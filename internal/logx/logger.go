package logx

import (
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var currentLevel LogLevel = LogLevelInfo

var (
	debugPrefix = plainPrefix("[DEBUG] ")
	infoPrefix  = plainPrefix("[INFO] ")
	warnPrefix  = plainPrefix("[WARN] ")
	errorPrefix = plainPrefix("[ERROR] ")
)

func init() {
	// colorable.NewColorable wraps os.Stderr so ANSI escapes render
	// correctly on Windows consoles that don't natively support them.
	log.SetOutput(colorable.NewColorable(os.Stderr))
	log.SetFlags(log.Ldate | log.Ltime)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		debugPrefix = color.New(color.FgCyan).Sprint("[DEBUG] ")
		infoPrefix = color.New(color.FgGreen).Sprint("[INFO] ")
		warnPrefix = color.New(color.FgYellow).Sprint("[WARN] ")
		errorPrefix = color.New(color.FgRed, color.Bold).Sprint("[ERROR] ")
	}
}

func plainPrefix(s string) string { return s }

func SetLevel(level LogLevel) { currentLevel = level }

func Level() LogLevel { return currentLevel }

func Debug(format string, v ...interface{}) {
	if currentLevel <= LogLevelDebug {
		log.Printf(debugPrefix+format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if currentLevel <= LogLevelInfo {
		log.Printf(infoPrefix+format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if currentLevel <= LogLevelWarn {
		log.Printf(warnPrefix+format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if currentLevel <= LogLevelError {
		log.Printf(errorPrefix+format, v...)
	}
}

func Fatal(format string, v ...interface{}) {
	log.Printf(errorPrefix+"[FATAL] "+format, v...)
	os.Exit(1)
}
