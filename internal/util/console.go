package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

var (
	consoleMu  sync.Mutex
	consoleOut io.Writer = os.Stdout
)

// SetConsoleOutput redirects console lines, e.g. to stderr when stdout
// carries JSON.
func SetConsoleOutput(w io.Writer) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	if w == nil {
		w = io.Discard
	}
	consoleOut = w
}

func TimeHM() string {
	return time.Now().Format("15:04")
}

func Colorize(s string, color string) string {
	if color == "" {
		return s
	}
	return color + s + ColorReset
}

// Line prints a single console line prefixed with HH:MM.
func Line(label string, labelColor string, msg string) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	if label != "" {
		fmt.Fprintf(consoleOut, "%s %s %s\n", TimeHM(), Colorize(label, labelColor), msg)
		return
	}
	fmt.Fprintf(consoleOut, "%s %s\n", TimeHM(), msg)
}

func Linef(label string, labelColor string, format string, args ...any) {
	Line(label, labelColor, fmt.Sprintf(format, args...))
}
