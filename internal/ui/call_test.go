package ui

import (
	"reflect"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/peercall/peercall/internal/session"
)

type fakeController struct {
	events   chan session.Event
	approved string
	rejected string
}

func (f *fakeController) Events() <-chan session.Event { return f.events }
func (f *fakeController) Approve(p string)             { f.approved = p }
func (f *fakeController) Reject(p, _ string)           { f.rejected = p }
func (f *fakeController) SetAudioEnabled(bool)         {}
func (f *fakeController) SetVideoEnabled(bool)         {}
func (f *fakeController) HangUp()                      {}

func newTestModel() (*CallModel, *fakeController) {
	ctrl := &fakeController{events: make(chan session.Event, 4)}
	return NewCallModel(ctrl, session.RoleHost, "abcde12345", "https://example.com/r/abcde12345"), ctrl
}

func TestSpinnerStyleFollowsState(t *testing.T) {
	m, _ := newTestModel()

	m.handleEvent(session.Event{Type: session.EventStateChange, State: session.StateJoined})
	if !reflect.DeepEqual(m.spinner.Spinner, spinner.Points) {
		t.Fatalf("waiting on a guest should animate with the waiting spinner")
	}

	m.handleEvent(session.Event{Type: session.EventStateChange, State: session.StateNegotiating})
	if !reflect.DeepEqual(m.spinner.Spinner, spinner.Globe) {
		t.Fatalf("negotiating should animate with the connection spinner")
	}
}

func TestJoinRequestKeysDriveAgent(t *testing.T) {
	m, ctrl := newTestModel()
	m.handleEvent(session.Event{Type: session.EventJoinRequest, Participant: "G1"})

	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	if ctrl.approved != "G1" {
		t.Fatalf("expected y to approve G1, got %q", ctrl.approved)
	}

	m.handleEvent(session.Event{Type: session.EventJoinRequest, Participant: "G2"})
	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if ctrl.rejected != "G2" {
		t.Fatalf("expected n to reject G2, got %q", ctrl.rejected)
	}
}

// TestClosedEventChannelQuits checks the model quits even when the
// final state notification was lost and only the channel closure
// remains.
func TestClosedEventChannelQuits(t *testing.T) {
	m, ctrl := newTestModel()
	close(ctrl.events)

	msg := m.waitForEvent()()
	if _, ok := msg.(sessionEndedMsg); !ok {
		t.Fatalf("expected session-ended message, got %T", msg)
	}

	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatalf("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.Quit")
	}
	if m.State() != session.StateClosed {
		t.Fatalf("expected closed state, got %s", m.State())
	}
}
