// Package remoteexec runs commands on the remote cluster login node over a
// single multiplexed SSH connection: synchronous exec, batched exec,
// file writes, streaming pulls/pushes, and an interactive PTY proxy.
package remoteexec

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	rverrors "github.com/rvcli/rv/pkg/errors"
	"github.com/rvcli/rv/pkg/logging"
	"github.com/rvcli/rv/pkg/retry"
)

// DefaultTimeout is used for an Exec call that doesn't specify one.
const DefaultTimeout = 30 * time.Second

// Executor runs commands against one remote host over a persistent SSH
// control connection, kept alive for the process lifetime; individual calls
// open a session over that connection rather than redialing.
type Executor struct {
	client *ssh.Client
	host   string
	user   string
	logger logging.Logger

	dialTimeout time.Duration
}

// Config describes how to reach the remote host.
type Config struct {
	// Hostname is the SSH-reachable address, "host:22" or "host" (port 22
	// assumed).
	Hostname string
	User     string

	// Auth supplies the SSH auth methods to try, in order. When nil,
	// NewExecutor falls back to the running ssh-agent (SSH_AUTH_SOCK) —
	// rv reads identity, it does not manage credentials.
	Auth []ssh.AuthMethod

	// HostKeyCallback defaults to ssh.InsecureIgnoreHostKey only when left
	// nil AND RV_INSECURE_HOST_KEY=1 is set; otherwise dialing without one
	// configured fails closed.
	HostKeyCallback ssh.HostKeyCallback

	DialTimeout time.Duration
}

// NewExecutor dials the remote host and returns an Executor holding the
// control connection. Dial failures are retried with
// pkg/retry.ConnectionBackoff before giving up.
func NewExecutor(ctx context.Context, cfg Config, logger logging.Logger) (*Executor, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	auth := cfg.Auth
	if len(auth) == 0 {
		agentAuth, err := agentAuthMethod()
		if err != nil {
			return nil, rverrors.Wrap(rverrors.KindConnection, err, "no SSH auth method available (start ssh-agent or configure a key)")
		}
		auth = []ssh.AuthMethod{agentAuth}
	}

	hostKeyCallback := cfg.HostKeyCallback
	if hostKeyCallback == nil {
		if os.Getenv("RV_INSECURE_HOST_KEY") == "1" {
			hostKeyCallback = ssh.InsecureIgnoreHostKey()
		} else {
			return nil, rverrors.New(rverrors.KindConfig, "no HostKeyCallback configured; set one or RV_INSECURE_HOST_KEY=1 for testing")
		}
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = DefaultTimeout
	}

	addr := cfg.Hostname
	if !strings.Contains(addr, ":") {
		addr = addr + ":22"
	}

	sshConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         dialTimeout,
	}

	backoff := retry.NewExponentialBackoff()
	policy := retry.NewConnectionBackoff(backoff, func(err error) bool {
		if rv, ok := err.(*rverrors.RVError); ok {
			return rv.IsRetryable()
		}
		return true
	})

	var client *ssh.Client
	var lastErr error
	for attempt := 0; ; attempt++ {
		c, dialErr := ssh.Dial("tcp", addr, sshConfig)
		if dialErr == nil {
			client = c
			break
		}
		lastErr = rverrors.WrapConnection(dialErr)
		if !policy.ShouldRetry(ctx, lastErr, attempt) {
			return nil, lastErr
		}
		select {
		case <-time.After(policy.WaitTime(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if client == nil {
		return nil, lastErr
	}

	logger.Info("ssh connection established", "host", cfg.Hostname, "user", cfg.User)

	return &Executor{
		client:      client,
		host:        cfg.Hostname,
		user:        cfg.User,
		logger:      logger,
		dialTimeout: dialTimeout,
	}, nil
}

func agentAuthMethod() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("dial ssh-agent: %w", err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// Close shuts down the control connection.
func (e *Executor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// Host returns the remote hostname this executor targets.
func (e *Executor) Host() string { return e.host }

// Exec runs command synchronously over a new session on the control
// connection and returns stdout. Fails with a pkg/errors Connection or
// RemoteExit error on a non-zero exit. A wall-clock timeout (default 30s,
// override via timeout>0) kills the remote process on expiry.
func (e *Executor) Exec(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	session, err := e.client.NewSession()
	if err != nil {
		return "", rverrors.WrapConnection(err)
	}
	defer session.Close()

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", &rverrors.RVError{
			Kind:      rverrors.KindConnection,
			Reason:    rverrors.ReasonTimeout,
			Message:   fmt.Sprintf("command timed out after %s", timeout),
			Retryable: true,
			Timestamp: time.Now(),
		}
	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				return stdout.String(), rverrors.RemoteExit(exitErr.ExitStatus(), stderr.String())
			}
			return "", rverrors.WrapConnection(err)
		}
		return stdout.String(), nil
	}
}
