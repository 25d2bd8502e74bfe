package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultRetries     = 3
	defaultRetryDelay  = 2 * time.Second
	probeCommand       = "true"
)

// SSHChecker dials each host and runs a no-op command.
type SSHChecker struct {
	// KnownHosts is the known_hosts file used to verify host keys. Host keys
	// are not verified when the file does not exist.
	KnownHosts  string
	DialTimeout time.Duration
	Retries     uint64
	RetryDelay  time.Duration
}

// NewSSHChecker returns a checker using ~/.ssh/known_hosts.
func NewSSHChecker() *SSHChecker {
	c := &SSHChecker{
		DialTimeout: defaultDialTimeout,
		Retries:     defaultRetries,
		RetryDelay:  defaultRetryDelay,
	}
	if home, err := os.UserHomeDir(); err == nil {
		c.KnownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}
	return c
}

// Check retries the dial with exponential backoff. Authentication and host
// key failures are not retried.
func (c *SSHChecker) Check(ctx context.Context, h Host) error {
	auth, closeAgent, err := authMethods(h)
	if err != nil {
		return err
	}
	defer closeAgent()

	hostKeyCallback, err := c.hostKeyCallback()
	if err != nil {
		return err
	}

	config := &ssh.ClientConfig{
		User:            h.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.DialTimeout,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.Retries), ctx)

	return backoff.Retry(func() error {
		err := c.probe(ctx, h.addr(), config)
		if err != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (c *SSHChecker) probe(ctx context.Context, addr string, config *ssh.ClientConfig) error {
	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return err
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	defer func() { _ = session.Close() }()

	if err := session.Run(probeCommand); err != nil {
		return fmt.Errorf("running %q: %w", probeCommand, err)
	}
	return nil
}

func (c *SSHChecker) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.KnownHosts == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // no known_hosts configured
	}
	if _, err := os.Stat(c.KnownHosts); errors.Is(err, os.ErrNotExist) {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // no known_hosts file yet
	}
	cb, err := knownhosts.New(c.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", c.KnownHosts, err)
	}
	return cb, nil
}

// authMethods prefers the ssh agent and adds the host's key file when it can
// be read. The returned func closes the agent connection.
func authMethods(h Host) ([]ssh.AuthMethod, func(), error) {
	var (
		methods []ssh.AuthMethod
		closer  = func() {}
	)

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closer = func() { _ = conn.Close() }
		}
	}

	if h.KeyFile != "" {
		signer, err := loadKey(h.KeyFile)
		if err != nil {
			closer()
			return nil, nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if len(methods) == 0 {
		return nil, nil, fmt.Errorf("no ssh credentials for %s: set SSH_AUTH_SOCK or ansible_ssh_private_key_file", h.Name)
	}
	return methods, closer, nil
}

func loadKey(path string) (ssh.Signer, error) {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing key %s: %w", path, err)
	}
	return signer, nil
}

func permanent(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "knownhosts:") || strings.Contains(msg, "unable to authenticate")
}
