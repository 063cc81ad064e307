// Package session holds the per-render state shared by the form and the
// prediction invoker.
package session

import (
	"github.com/google/uuid"

	"premium-predictor/internal/form"
)

// Placeholder is shown whenever no prediction value is available.
const Placeholder = "Awaiting..."

// DisplayState is the state of the prediction display.
type DisplayState string

const (
	DisplayIdle     DisplayState = "idle"
	DisplayComputed DisplayState = "computed"
	DisplayFailed   DisplayState = "failed"
)

// Display is what the result area shows for one render.
type Display struct {
	State     DisplayState `json:"state"`
	Premium   float64      `json:"premium,omitempty"`
	Value     string       `json:"display"`
	Message   string       `json:"message,omitempty"`
	ErrorCode string       `json:"errorCode,omitempty"`
}

// IdleDisplay is the display before any prediction is requested.
func IdleDisplay() Display {
	return Display{State: DisplayIdle, Value: Placeholder}
}

// FailedDisplay shows the placeholder together with a short message.
func FailedDisplay(code, message string) Display {
	return Display{State: DisplayFailed, Value: Placeholder, Message: message, ErrorCode: code}
}

// Text returns the value shown next to the result label.
func (d Display) Text() string {
	if d.State == DisplayComputed {
		return d.Value
	}
	return Placeholder
}

// State is rebuilt for every render and never shared between requests.
type State struct {
	RenderID string
	Form     *form.Collector
	Display  Display
}

// New starts a render with a fresh form and an idle display.
func New() *State {
	return &State{
		RenderID: uuid.NewString(),
		Form:     form.NewCollector(),
		Display:  IdleDisplay(),
	}
}
