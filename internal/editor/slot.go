// Package editor owns the editing session: the tracks of every preview slot,
// the split-screen framing, and the single drag operation that may be in
// progress. All edits go through the Session and are published to the
// players that preview each slot.
package editor

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSlot     = errors.New("unknown slot")
	ErrClipNotFound    = errors.New("clip not found")
	ErrDragInProgress  = errors.New("another drag is in progress")
	ErrNoDrag          = errors.New("no drag in progress")
	ErrUnknownDragKind = errors.New("unknown drag kind")
)

// Slot names a track of the session.
type Slot string

const (
	SlotSingle Slot = "single"
	SlotTop    Slot = "top"
	SlotBottom Slot = "bottom"
	SlotAudio  Slot = "audio"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotSingle, SlotTop, SlotBottom, SlotAudio}

func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotSingle, SlotTop, SlotBottom, SlotAudio:
		return Slot(s), nil
	case "":
		return SlotSingle, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
}

func (s Slot) valid() bool {
	_, err := ParseSlot(string(s))
	return err == nil && s != ""
}
