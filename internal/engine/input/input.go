// Package input turns SDL2 events into viewer actions.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType classifies an Event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventResize
	EventKeyDown
	EventDrag
	EventZoom
)

// Event is one processed input event.
type Event struct {
	Type          EventType
	Key           sdl.Scancode
	Width, Height int
	// DX, DY is the pointer motion of a drag; DY alone carries zoom steps.
	DX, DY float32
}

// Input collects the events of one frame.
type Input struct {
	events   []Event
	dragging bool
}

// New creates an input handler.
func New() *Input {
	return &Input{events: make([]Event, 0, 16)}
}

// Update polls pending SDL events. It reports whether the viewer should
// quit.
func (in *Input) Update() bool {
	in.events = in.events[:0]
	quit := false
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		if in.handle(ev) {
			quit = true
		}
	}
	return quit
}

func (in *Input) handle(ev sdl.Event) bool {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		in.events = append(in.events, Event{Type: EventQuit})
		return true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED {
			in.events = append(in.events, Event{Type: EventResize, Width: int(e.Data1), Height: int(e.Data2)})
		}

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
			break
		}
		if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
			in.events = append(in.events, Event{Type: EventQuit})
			return true
		}
		in.events = append(in.events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})

	case *sdl.MouseButtonEvent:
		if e.Button == sdl.BUTTON_LEFT {
			in.dragging = e.Type == sdl.MOUSEBUTTONDOWN
		}

	case *sdl.MouseMotionEvent:
		if in.dragging {
			in.events = append(in.events, Event{Type: EventDrag, DX: float32(e.XRel), DY: float32(e.YRel)})
		}

	case *sdl.MouseWheelEvent:
		in.events = append(in.events, Event{Type: EventZoom, DY: float32(e.Y)})
	}
	return false
}

// Events returns the events of the last Update.
func (in *Input) Events() []Event {
	return in.events
}

// KeyPressed reports whether key went down this frame.
func (in *Input) KeyPressed(key sdl.Scancode) bool {
	for _, e := range in.events {
		if e.Type == EventKeyDown && e.Key == key {
			return true
		}
	}
	return false
}
