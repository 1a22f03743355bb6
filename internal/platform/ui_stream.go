package platform

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"autopilot/internal/messages"
	components "autopilot/ui/components"

	"github.com/nats-io/nats.go/jetstream"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// LayoutStream is the SSE handler for /ui/layouts. It sends the layout list
// once, then again after every layout event until the client disconnects.
func LayoutStream(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := SessionID(r)
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		cons, err := svc.JS.CreateConsumer(ctx, EventStream, jetstream.ConsumerConfig{
			AckPolicy:      jetstream.AckNonePolicy,
			FilterSubjects: []string{messages.LayoutEventSubjectPattern},
			DeliverPolicy:  jetstream.DeliverNewPolicy,
		})
		if err != nil {
			slog.Warn("LayoutStream: failed to create consumer", "sid", sid, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		sse := datastar.NewSSE(w, r)
		var mu sync.Mutex
		render := func() {
			mu.Lock()
			defer mu.Unlock()
			list, err := svc.Layout.List(ctx)
			if err != nil {
				slog.Warn("LayoutStream: list layouts", "sid", sid, "err", err)
				return
			}
			if err := sse.MergeFragmentTempl(components.LayoutList(list), datastar.WithSelectorID(components.LayoutListID)); err != nil {
				slog.Warn("LayoutStream: render", "sid", sid, "err", err)
				cancel()
			}
		}

		render()

		cc, err := cons.Consume(func(msg jetstream.Msg) {
			slog.Debug("LayoutStream: layout event", "sid", sid, "subject", msg.Subject())
			render()
		})
		if err != nil {
			slog.Warn("LayoutStream: consume failed", "sid", sid, "err", err)
			return
		}
		defer cc.Stop()

		<-ctx.Done() // Wait for disconnect
	}
}
