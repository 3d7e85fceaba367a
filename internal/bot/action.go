package bot

import (
	"bytes"
	"encoding/json"
	"fmt"

	domerrors "github.com/garyellow/buscacursos-bot-go/internal/errors"
)

// ActionType discriminates button actions.
type ActionType uint8

// Button action types.
const (
	ActionGoToPage ActionType = iota + 1 // Show another page of the stored results
	ActionCommand                        // Run a command as if the user typed it
)

// Action is what a button does when pressed.
//
// Actions travel through the chat platform as callback or postback payloads:
// GoToPage(2) is {"i":2} and Command("course_IIC2233_2") is
// {"c":"course_IIC2233_2"}.
type Action struct {
	Type    ActionType
	Page    int    // ActionGoToPage
	Command string // ActionCommand
}

// GoToPage returns an action showing page index.
func GoToPage(index int) Action {
	return Action{Type: ActionGoToPage, Page: index}
}

// Command returns an action running the named command.
func Command(name string) Action {
	return Action{Type: ActionCommand, Command: name}
}

type actionPayload struct {
	Index   *int   `json:"i,omitempty"`
	Command string `json:"c,omitempty"`
}

// Encode returns the payload form of the action.
func (a Action) Encode() string {
	var p actionPayload
	switch a.Type {
	case ActionGoToPage:
		p.Index = &a.Page
	case ActionCommand:
		p.Command = a.Command
	}
	// Marshalling a struct of an int pointer and a string cannot fail.
	data, _ := json.Marshal(p)
	return string(data)
}

// String implements fmt.Stringer.
func (a Action) String() string {
	return a.Encode()
}

// DecodeAction parses a payload produced by Encode.
// Malformed payloads return an error matching errors.ErrInvalidInput.
func DecodeAction(data string) (Action, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()

	var p actionPayload
	if err := dec.Decode(&p); err != nil {
		return Action{}, fmt.Errorf("%w: action payload %q: %v", domerrors.ErrInvalidInput, data, err)
	}
	if dec.More() {
		return Action{}, fmt.Errorf("%w: action payload %q: trailing data", domerrors.ErrInvalidInput, data)
	}

	switch {
	case p.Index != nil && p.Command == "":
		return GoToPage(*p.Index), nil
	case p.Index == nil && p.Command != "":
		return Command(p.Command), nil
	default:
		return Action{}, fmt.Errorf("%w: action payload %q: want exactly one of i or c", domerrors.ErrInvalidInput, data)
	}
}
