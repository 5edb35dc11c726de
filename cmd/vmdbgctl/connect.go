package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lookbusy1344/vmdbg/metrics"
	"github.com/lookbusy1344/vmdbg/session"
	"github.com/lookbusy1344/vmdbg/transport"
)

var (
	snapshotLocation string
	metricsAddr      string
	useWebSocket     bool
	handshakeVersion string
)

var connectCmd = &cobra.Command{
	Use:   "connect <addr>",
	Short: "Connect to a VM and start an interactive debug session",
	Args:  cobra.ExactArgs(1),
	RunE:  runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&snapshotLocation, "snapshot", "", "snapshot file the VM was resumed from, if any")
	connectCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")
	connectCmd.Flags().BoolVar(&useWebSocket, "ws", false, "dial addr as a WebSocket URL instead of a raw TCP address")
	connectCmd.Flags().StringVar(&handshakeVersion, "protocol-version", "1.0", "protocol version to request during handshake")
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	addr := args[0]

	conn, err := dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("vmdbgctl: %w", err)
	}

	metricsListener := metrics.New(nil)
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			_ = server.ListenAndServe()
		}()
		fmt.Printf("metrics listening on %s/metrics\n", metricsAddr)
	}

	ctrl := session.New(conn, session.Options{})
	ctrl.Subscribe(metricsListener)
	ctrl.Subscribe(consoleListener{})

	if _, err := ctrl.Handshake(ctx, handshakeVersion, 0); err != nil {
		return fmt.Errorf("vmdbgctl: handshake: %w", err)
	}
	if err := ctrl.Initialize(ctx, snapshotLocation); err != nil {
		return fmt.Errorf("vmdbgctl: initialize: %w", err)
	}

	fmt.Printf("connected to %s (session %s)\n", conn.Description(), ctrl.ID())
	return runREPL(ctx, ctrl)
}

func dial(ctx context.Context, addr string) (transport.Connection, error) {
	if useWebSocket {
		return transport.DialWebSocket(ctx, addr)
	}
	return transport.Dial(ctx, addr)
}
