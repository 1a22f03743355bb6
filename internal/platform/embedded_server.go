package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// EmbeddedServerConfig holds options for running the embedded server.
type EmbeddedServerConfig struct {
	ServerName      string // defaults to "autopilot"
	InProcess       bool   // no TCP listener; clients connect in-process
	Port            int    // 0 selects the NATS default port
	EnableLogging   bool
	JetStream       bool
	JetStreamDomain string
	LeafNodeURL     string // empty disables leaf node
	LeafNodeCreds   string // optional, only used if LeafNodeURL is set
	StoreDir        string // JetStream file storage
}

// RunEmbeddedServer starts an embedded NATS server with the given config and
// returns a client connection, the server instance and a channel that
// receives ctx's error once ctx is done. The caller shuts the server down.
func RunEmbeddedServer(ctx context.Context, cfg EmbeddedServerConfig) (*nats.Conn, *server.Server, <-chan error, error) {
	name := cfg.ServerName
	if name == "" {
		name = "autopilot"
	}
	opts := &server.Options{
		ServerName:      name,
		DontListen:      cfg.InProcess,
		Port:            cfg.Port,
		JetStream:       cfg.JetStream,
		JetStreamDomain: cfg.JetStreamDomain,
		StoreDir:        cfg.StoreDir,
		NoSigs:          true,
	}
	if cfg.LeafNodeURL != "" {
		leafURL, err := url.Parse(cfg.LeafNodeURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("leaf node url: %w", err)
		}
		opts.LeafNode = server.LeafNodeOpts{Remotes: []*server.RemoteLeafOpts{{
			URLs:        []*url.URL{leafURL},
			Credentials: cfg.LeafNodeCreds,
		}}}
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("new nats server: %w", err)
	}
	if cfg.EnableLogging {
		ns.SetLogger(NewNATSServerLogger(slog.Default()), false, false)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, nil, nil, errors.New("NATS Server timeout")
	}

	var clientOpts []nats.Option
	if cfg.InProcess {
		clientOpts = append(clientOpts, nats.InProcessServer(ns))
	}
	nc, err := nats.Connect(ns.ClientURL(), clientOpts...)
	if err != nil {
		ns.Shutdown()
		return nil, nil, nil, fmt.Errorf("connect to embedded server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		errCh <- ctx.Err()
	}()

	return nc, ns, errCh, nil
}
