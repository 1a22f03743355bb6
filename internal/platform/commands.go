package platform

import (
	"context"
	"errors"
	"log/slog"

	"autopilot/internal/layout"
	"autopilot/internal/messages"

	"github.com/nats-io/nats.go/jetstream"
)

// LayoutCommands consumes command.layout.> subjects from the COMMAND stream and
// applies them to the layout repository.
type LayoutCommands struct {
	js   jetstream.JetStream
	repo *LayoutRepo
}

func NewLayoutCommands(js jetstream.JetStream, repo *LayoutRepo) *LayoutCommands {
	return &LayoutCommands{js: js, repo: repo}
}

// Start registers a durable consumer and handles messages until ctx is
// cancelled.
func (lc *LayoutCommands) Start(ctx context.Context) error {
	cons, err := lc.js.CreateOrUpdateConsumer(ctx, CommandStream, jetstream.ConsumerConfig{
		Durable:        "LAYOUT_CMD",
		FilterSubjects: []string{messages.LayoutCommandSubjectPattern},
		AckPolicy:      jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return err
	}

	cc, err := cons.Consume(func(m jetstream.Msg) {
		lc.handle(ctx, m)
	})
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cc.Stop()
	}()
	return nil
}

func (lc *LayoutCommands) handle(ctx context.Context, m jetstream.Msg) {
	cmd, err := messages.DecodeCommand(m.Subject(), m.Data())
	if err != nil {
		slog.Warn("dropping layout command", "subject", m.Subject(), "err", err)
		_ = m.Term()
		return
	}

	switch c := cmd.(type) {
	case messages.LayoutPatchCommand:
		_, err = lc.repo.Patch(ctx, c.LayoutID, c.Patch, c.Type, c.CorrelationID)
	case messages.LayoutDeleteCommand:
		err = lc.repo.Delete(ctx, c.LayoutID, c.CorrelationID)
	}

	switch {
	case err == nil:
		_ = m.Ack()
	case errors.Is(err, layout.ErrNotFound), errors.Is(err, ErrInvalidLayout):
		slog.Warn("rejected layout command", "subject", m.Subject(), "err", err)
		_ = m.Term()
	default:
		slog.Error("layout command failed", "subject", m.Subject(), "err", err)
		_ = m.Nak()
	}
}
