package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"autopilot/internal/layout"

	"github.com/nats-io/nats.go/jetstream"
)

// =============================================================================
// CONSTRUCTORS - Easy message creation
// =============================================================================

// NewLayoutPatchCommand creates a layout patch command
func NewLayoutPatchCommand(layoutID string, patch json.RawMessage, typ PatchType) *LayoutPatchCommand {
	return &LayoutPatchCommand{LayoutID: layoutID, Patch: patch, Type: typ}
}

// WithCorrelation adds correlation ID to layout patch command
func (c *LayoutPatchCommand) WithCorrelation(id string) *LayoutPatchCommand {
	c.CorrelationID = id
	return c
}

// NewLayoutDeleteCommand creates a layout delete command
func NewLayoutDeleteCommand(layoutID string) *LayoutDeleteCommand {
	return &LayoutDeleteCommand{LayoutID: layoutID}
}

// WithCorrelation adds correlation ID to layout delete command
func (c *LayoutDeleteCommand) WithCorrelation(id string) *LayoutDeleteCommand {
	c.CorrelationID = id
	return c
}

// NewLayoutSavedEvent creates a saved event for l. The timestamp is l.SavedAt
// when set, else now.
func NewLayoutSavedEvent(l layout.Layout) *LayoutSavedEvent {
	panels := make([]string, 0, len(l.Panels))
	for id := range l.Panels {
		panels = append(panels, id)
	}
	sort.Strings(panels)

	at := time.Now()
	if l.SavedAt != nil {
		at = *l.SavedAt
	}
	return &LayoutSavedEvent{
		LayoutID: l.ID,
		Name:     l.Name,
		Panels:   panels,
		SavedAt:  at,
	}
}

// WithCorrelation adds correlation ID to layout saved event
func (e *LayoutSavedEvent) WithCorrelation(id string) *LayoutSavedEvent {
	e.CorrelationID = id
	return e
}

// NewLayoutDeletedEvent creates a deleted event
func NewLayoutDeletedEvent(layoutID string) *LayoutDeletedEvent {
	return &LayoutDeletedEvent{LayoutID: layoutID, DeletedAt: time.Now()}
}

// WithCorrelation adds correlation ID to layout deleted event
func (e *LayoutDeletedEvent) WithCorrelation(id string) *LayoutDeletedEvent {
	e.CorrelationID = id
	return e
}

// =============================================================================
// PUBLISHER - Type-safe message publishing
// =============================================================================

// Publisher provides type-safe message publishing
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new type-safe publisher
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishCommand publishes a command with validation
func (p *Publisher) PublishCommand(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	_, err = p.js.Publish(ctx, cmd.Subject(), data)
	if err != nil {
		return fmt.Errorf("publish command: %w", err)
	}

	return nil
}

// PublishEvent publishes an event with validation
func (p *Publisher) PublishEvent(ctx context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("event validation failed: %w", err)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.js.Publish(ctx, evt.Subject(), data)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// =============================================================================
// UTILITIES - Helper functions for common operations
// =============================================================================

// DecodeCommand parses a message received on subject into its typed command.
func DecodeCommand(subject string, data []byte) (Command, error) {
	if !SubjectMatches(LayoutCommandSubjectPattern, subject) {
		return nil, fmt.Errorf("%w: %s", ErrForeignSubject, subject)
	}
	var cmd Command
	switch subject {
	case LayoutPatchSubject:
		var c LayoutPatchCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", subject, err)
		}
		cmd = c
	case LayoutDeleteSubject:
		var c LayoutDeleteCommand
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", subject, err)
		}
		cmd = c
	default:
		return nil, fmt.Errorf("unknown layout command: %s", subject)
	}
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("command validation failed: %w", err)
	}
	return cmd, nil
}
