package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// ShowProgress runs fn while a spinner with message is drawn on stderr
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(os.Stderr) {
		LogInfo(message)
		return fn()
	}

	status := NewStatusLine(os.Stderr, message)
	status.Start(ctx)
	err := fn()
	status.Stop(err)
	return err
}

// StatusLine is a single rewritable spinner line. Its message can be
// replaced while it spins, which is how download progress is reported.
type StatusLine struct {
	w       io.Writer
	mu      sync.Mutex
	message string
	done    chan struct{}
	stopped chan struct{}
}

// NewStatusLine creates a status line writing to w
func NewStatusLine(w io.Writer, message string) *StatusLine {
	return &StatusLine{w: w, message: message}
}

// Start begins drawing the spinner until Stop is called or ctx is done
func (s *StatusLine) Start(ctx context.Context) {
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				char := spinnerChars[i%len(spinnerChars)]
				fmt.Fprintf(s.w, "\r\033[K%s %s", progressStyle.Render(char), s.Message())
				i++
			}
		}
	}()
}

// Update replaces the message shown next to the spinner
func (s *StatusLine) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Message returns the current message
func (s *StatusLine) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Stop ends the spinner and prints a final ✓ or ✗ line
func (s *StatusLine) Stop(err error) {
	if s.done != nil {
		close(s.done)
		<-s.stopped
		s.done = nil
	}
	if err != nil {
		fmt.Fprintf(s.w, "\r\033[K%s %s\n", errorStyle.Render("✗"), s.Message())
		return
	}
	fmt.Fprintf(s.w, "\r\033[K%s %s\n", successStyle.Render("✓"), s.Message())
}

// FetchingMessage is the download indicator text for a byte count
func FetchingMessage(received int64) string {
	if received <= 0 {
		return "⏳ Fetching source code"
	}
	return fmt.Sprintf("⏳ Fetching source code (%s)", FormatFileSize(received))
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	return isTerminal(w)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", successStyle.Render("✓"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintError prints an error message
func PrintError(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), message)
	} else {
		fmt.Fprintf(os.Stderr, "%s\n", message)
	}
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if isTerminal(os.Stdout) {
		fmt.Printf("%s %s\n", progressStyle.Render("ℹ"), message)
	} else {
		fmt.Println(message)
	}
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	if isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), message)
	} else {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", message)
	}
}
