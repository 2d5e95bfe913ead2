// Package message carries change notifications between rasters and the
// objects that depend on them.
package message

import (
	"fmt"

	"rastermosaic/pkg/geometry"
)

// Kind tags a message variant
type Kind int

const (
	GeometryChanged Kind = iota
	PaletteChanged
	ContentChanged
)

func (k Kind) String() string {
	switch k {
	case GeometryChanged:
		return "geometry-changed"
	case PaletteChanged:
		return "palette-changed"
	case ContentChanged:
		return "content-changed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Message is a notification raised by a Sender
type Message interface {
	Kind() Kind
	Source() Sender
}

// GeometryChangedMsg reports that the sender's coordinate system or shape changed
type GeometryChangedMsg struct {
	From Sender
}

func (m GeometryChangedMsg) Kind() Kind     { return GeometryChanged }
func (m GeometryChangedMsg) Source() Sender { return m.From }

// PaletteChangedMsg reports that the sender's palette changed
type PaletteChangedMsg struct {
	From Sender
}

func (m PaletteChangedMsg) Kind() Kind     { return PaletteChanged }
func (m PaletteChangedMsg) Source() Sender { return m.From }

// ContentChangedMsg reports that pixels inside Shape changed
type ContentChangedMsg struct {
	From  Sender
	Shape *geometry.Shape
}

func (m ContentChangedMsg) Kind() Kind     { return ContentChanged }
func (m ContentChangedMsg) Source() Sender { return m.From }

// Receiver is notified of messages. It returns true when the message
// should keep propagating to the receiver's own listeners.
type Receiver interface {
	Receive(msg Message) bool
}

// Sender is anything receivers can be linked to
type Sender interface {
	Link(r Receiver)
	Unlink(r Receiver)
}

// Emitter keeps the linked receivers of a Sender. It is meant to be embedded.
type Emitter struct {
	receivers []Receiver
}

// Link registers r, linking the same receiver twice has no effect
func (e *Emitter) Link(r Receiver) {
	for _, existing := range e.receivers {
		if existing == r {
			return
		}
	}
	e.receivers = append(e.receivers, r)
}

// Unlink removes r
func (e *Emitter) Unlink(r Receiver) {
	for i, existing := range e.receivers {
		if existing == r {
			e.receivers = append(e.receivers[:i], e.receivers[i+1:]...)
			return
		}
	}
}

// Linked returns the registered receivers
func (e *Emitter) Linked() []Receiver {
	out := make([]Receiver, len(e.receivers))
	copy(out, e.receivers)
	return out
}

// Propagate delivers msg to every linked receiver. Receivers linked or
// unlinked while delivering take effect on the next message.
func (e *Emitter) Propagate(msg Message) {
	for _, r := range e.Linked() {
		r.Receive(msg)
	}
}

// Handler reacts to one message kind and returns whether the message
// should keep propagating.
type Handler func(msg Message) bool

// Table maps message kinds to handlers
type Table map[Kind]Handler

// Dispatch runs the handler registered for msg's kind. Messages without a
// handler are not handled and keep propagating.
func (t Table) Dispatch(msg Message) (propagate, handled bool) {
	h, ok := t[msg.Kind()]
	if !ok {
		return true, false
	}
	return h(msg), true
}
