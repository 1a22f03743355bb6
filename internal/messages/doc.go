// Package messages provides a centralized schema for the layout service's NATS
// messaging contracts.
//
// This package consolidates message types, subject patterns and validation
// into a single source of truth, providing:
//
//   - Type-safe message construction with fluent builders
//   - Centralized subject constants to eliminate hardcoded strings
//   - Validation methods to ensure message integrity
//   - A publisher that validates before sending
//
// # Message Types
//
//   - Commands: requests sent to the layout service over the COMMAND stream
//     (e.g., LayoutPatchCommand)
//   - Events: facts published on the EVENT stream after the layout store
//     changed (e.g., LayoutSavedEvent)
//
// # Usage Example
//
//	publisher := messages.NewPublisher(js)
//
//	evt := messages.NewLayoutSavedEvent(l).WithCorrelation(requestID)
//	if err := publisher.PublishEvent(ctx, evt); err != nil {
//	    return err
//	}
//
//	cmd := messages.NewLayoutPatchCommand("debug-view", patch, messages.PatchMerge)
//	if err := publisher.PublishCommand(ctx, cmd); err != nil {
//	    return err
//	}
package messages
