package speech

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/credentials/oauth"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// connect dials the endpoint and blocks until the channel is ready.
func connect(ctx context.Context, cfg Config) (*grpc.ClientConn, error) {
	opts, err := dialOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial speech grpc %q: %w", cfg.Endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for speech grpc readiness: %w", err)
	}
	return conn, nil
}

// dialOptions uses plaintext for local endpoints and TLS with Application
// Default Credentials otherwise.
func dialOptions(ctx context.Context, cfg Config) ([]grpc.DialOption, error) {
	if cfg.Insecure {
		return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, nil
	}

	tokens, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("load google application default credentials: %w", err)
	}
	return []grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})),
		grpc.WithPerRPCCredentials(oauth.TokenSource{TokenSource: tokens}),
	}, nil
}

// CheckReady dials the endpoint and closes the connection once it is usable.
func CheckReady(ctx context.Context, cfg Config) error {
	cfg = withDefaults(cfg)
	if cfg.Endpoint == "" {
		return errors.New("speech endpoint is empty")
	}
	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	return conn.Close()
}

// waitForReady blocks until conn is Ready, shut down or ctx expires.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state)
		}
	}
}

// openWithTimeout bounds stream-open latency when the backend stalls.
func openWithTimeout[T any](ctx context.Context, timeout time.Duration, open func() (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return open()
	}

	type result struct {
		value T
		err   error
	}
	resultCh := make(chan result, 1)
	go func() {
		value, err := open()
		resultCh <- result{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, fmt.Errorf("timed out after %s", timeout)
	case r := <-resultCh:
		return r.value, r.err
	}
}

// runWithTimeout bounds one blocking call such as the initial Send.
func runWithTimeout(ctx context.Context, timeout time.Duration, call func() error) error {
	_, err := openWithTimeout(ctx, timeout, func() (struct{}, error) {
		return struct{}{}, call()
	})
	return err
}
