package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/fieldsync/internal/client/uiapi"
)

// DefaultListen адрес локального API по умолчанию, доступен только с этого устройства
const DefaultListen = "127.0.0.1:8787"

const shutdownTimeout = 5 * time.Second

// runServe запускает движок синхронизации и локальный API до отмены ctx
func (c *Cli) runServe(ctx context.Context, listen string) error {
	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listen, err)
	}

	srv := &http.Server{
		Handler:           uiapi.NewHandler(c.app, c.app.Logger.With("component", "uiapi")).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if err := c.app.Engine.Start(ctx); err != nil {
		_ = listener.Close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	c.io.Println("=== fieldsync daemon ===")
	c.io.Printf("Listening on http://%s\n", listener.Addr())
	c.io.Printf("Network: %s, storage: %s\n", onlineLabel(c.app.Network.IsOnline()), durableLabel(c.app.Store.Durable()))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	c.io.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
