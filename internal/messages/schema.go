package messages

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// CORE INTERFACES
// =============================================================================

// Message represents any message in the system
type Message interface {
	Subject() string
	Validate() error
}

// Command represents an input that requests something to happen
type Command interface {
	Message
	IsCommand()
}

// Event represents something that has happened
type Event interface {
	Message
	IsEvent()
	Timestamp() time.Time
}

// ErrForeignSubject is returned when a subject lies outside the layout
// command namespace.
var ErrForeignSubject = errors.New("subject is not a layout command")

// =============================================================================
// SUBJECT CONSTANTS - Single source of truth for all subjects
// =============================================================================

const (
	// Layout domain - Commands
	LayoutCommandSubjectPattern = "command.layout.>"
	LayoutPatchSubject          = "command.layout.patch"
	LayoutDeleteSubject         = "command.layout.delete"

	// Layout domain - Events
	LayoutEventSubjectPattern = "event.layout.>"
	LayoutSavedSubject        = "event.layout.saved"
	LayoutDeletedSubject      = "event.layout.deleted"
)

// =============================================================================
// LAYOUT DOMAIN - COMMANDS
// =============================================================================

// PatchType selects the patch document format.
type PatchType string

const (
	PatchMerge     PatchType = "merge"     // RFC 7386
	PatchJSONPatch PatchType = "jsonpatch" // RFC 6902
)

// LayoutPatchCommand requests a patch of a stored layout
type LayoutPatchCommand struct {
	LayoutID      string          `json:"layout_id"`
	Patch         json.RawMessage `json:"patch"`
	Type          PatchType       `json:"type,omitempty"` // default = merge
	CorrelationID string          `json:"correlation_id,omitempty"`
}

func (c LayoutPatchCommand) Subject() string { return LayoutPatchSubject }
func (c LayoutPatchCommand) IsCommand()      {}
func (c LayoutPatchCommand) Validate() error {
	if c.LayoutID == "" || len(c.Patch) == 0 {
		return errors.New("layout_id and patch are required")
	}
	switch c.Type {
	case "", PatchMerge, PatchJSONPatch:
	default:
		return fmt.Errorf("invalid patch type: %s", c.Type)
	}
	return nil
}

// LayoutDeleteCommand requests removal of a stored layout
type LayoutDeleteCommand struct {
	LayoutID      string `json:"layout_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (c LayoutDeleteCommand) Subject() string { return LayoutDeleteSubject }
func (c LayoutDeleteCommand) IsCommand()      {}
func (c LayoutDeleteCommand) Validate() error {
	if c.LayoutID == "" {
		return errors.New("layout_id is required")
	}
	return nil
}

// =============================================================================
// LAYOUT DOMAIN - EVENTS
// =============================================================================

// LayoutSavedEvent indicates a layout was created or replaced
type LayoutSavedEvent struct {
	LayoutID      string    `json:"layout_id"`
	Name          string    `json:"name"`
	Panels        []string  `json:"panels"`
	SavedAt       time.Time `json:"saved_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e LayoutSavedEvent) Subject() string      { return LayoutSavedSubject }
func (e LayoutSavedEvent) IsEvent()             {}
func (e LayoutSavedEvent) Timestamp() time.Time { return e.SavedAt }
func (e LayoutSavedEvent) Validate() error {
	if e.LayoutID == "" {
		return errors.New("layout_id is required")
	}
	return nil
}

// LayoutDeletedEvent indicates a layout was removed
type LayoutDeletedEvent struct {
	LayoutID      string    `json:"layout_id"`
	DeletedAt     time.Time `json:"deleted_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e LayoutDeletedEvent) Subject() string      { return LayoutDeletedSubject }
func (e LayoutDeletedEvent) IsEvent()             {}
func (e LayoutDeletedEvent) Timestamp() time.Time { return e.DeletedAt }
func (e LayoutDeletedEvent) Validate() error {
	if e.LayoutID == "" {
		return errors.New("layout_id is required")
	}
	return nil
}
