package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Stream names.
const (
	CommandStream = "COMMAND"
	EventStream   = "EVENT"
)

// EnsureStreams creates the COMMAND and EVENT streams and the layouts bucket.
// It is idempotent.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      CommandStream,
		Subjects:  []string{"command.>"},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create %s stream: %w", CommandStream, err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     EventStream,
		Subjects: []string{"event.>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create %s stream: %w", EventStream, err)
	}
	slog.Info("Streams 'COMMAND' and 'EVENT' created.")

	_, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  LayoutsBucket,
		History: 5,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create %s bucket: %w", LayoutsBucket, err)
	}
	slog.Info("KV bucket 'layouts' created for saved layout configurations.")
	return nil
}

// Services is the JetStream-backed state shared by the HTTP server and the
// command consumer.
type Services struct {
	JS     jetstream.JetStream
	Layout *LayoutRepo
}

// NewServices prepares streams and the layout repository on nc.
func NewServices(ctx context.Context, nc *nats.Conn) (*Services, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := EnsureStreams(ctx, js); err != nil {
		return nil, err
	}
	repo, err := NewLayoutRepo(ctx, js)
	if err != nil {
		return nil, err
	}
	return &Services{JS: js, Layout: repo}, nil
}

// Run starts the layout command consumer and blocks until ctx is done.
func Run(ctx context.Context, svc *Services) error {
	if err := NewLayoutCommands(svc.JS, svc.Layout).Start(ctx); err != nil {
		return fmt.Errorf("start layout commands: %w", err)
	}
	slog.Info("🚀 Layout service is up.")
	<-ctx.Done()
	slog.Info("Run: shutdown requested")
	return nil
}
