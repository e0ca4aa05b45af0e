package ui

import "testing"

func TestConnectionSpinnerStopIsIdempotent(t *testing.T) {
	s := NewConnectionSpinner("connecting")
	s.Start()
	s.Stop()
	// A second stop must not panic on the closed channel.
	s.Stop()
}

func TestRunConnectionSpinnerReturnsStop(t *testing.T) {
	stop := RunConnectionSpinner("connecting")
	stop()
	stop()
}
