package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// ConnectionSpinner is a blocking spinner for the dial-and-connect
// phase, before the call UI owns the terminal.
type ConnectionSpinner struct {
	message string
	done    chan struct{}
	stopped bool
}

// NewConnectionSpinner creates a spinner for network/connection operations (Globe style)
func NewConnectionSpinner(message string) *ConnectionSpinner {
	return &ConnectionSpinner{
		message: message,
		done:    make(chan struct{}),
	}
}

func (s *ConnectionSpinner) Start() {
	go func() {
		frames := spinner.Globe.Frames
		i := 0
		for {
			select {
			case <-s.done:
				return
			default:
				frame := SpinnerStyle.Render(frames[i%len(frames)])
				fmt.Printf("\r%s %s", frame, s.message)
				i++
				time.Sleep(180 * time.Millisecond)
			}
		}
	}()
}

func (s *ConnectionSpinner) Stop() {
	if !s.stopped {
		s.stopped = true
		close(s.done)
		fmt.Print("\r\033[K") // Clear the line
	}
}

// RunConnectionSpinner starts a connection spinner and returns a stop function
func RunConnectionSpinner(message string) func() {
	sp := NewConnectionSpinner(message)
	sp.Start()
	return sp.Stop
}
