// Package ssh provides the remote session backend: eschatch can wrap a
// shell on another host the same way it wraps a local child, with the
// interception engine unchanged.
package ssh

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Options configures the SSH connection.
type Options struct {
	Host       string
	Port       int
	User       string
	KeyPath    string // private key file; agent and default keys tried otherwise
	Passphrase string // for encrypted keys
	KnownHosts string // known_hosts path; defaults to ~/.ssh/known_hosts
	Timeout    time.Duration
}

// Client is an established SSH connection.
type Client struct {
	conn *ssh.Client
}

// ParseTarget splits "user@host[:port]" into its parts. The user defaults
// to $USER and the port to 22.
func ParseTarget(target string) (user, host string, port int, err error) {
	user = os.Getenv("USER")
	host = target

	if at := strings.LastIndex(host, "@"); at >= 0 {
		user = host[:at]
		host = host[at+1:]
	}
	if colon := strings.LastIndex(host, ":"); colon >= 0 {
		p, perr := strconv.Atoi(host[colon+1:])
		if perr != nil || p <= 0 || p > 65535 {
			return "", "", 0, fmt.Errorf("invalid port in target %q", target)
		}
		port = p
		host = host[:colon]
	} else {
		port = 22
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("missing host in target %q", target)
	}
	if user == "" {
		return "", "", 0, fmt.Errorf("missing user in target %q (use user@host)", target)
	}
	return user, host, port, nil
}

// Dial connects and authenticates.
func Dial(opts Options) (*Client, error) {
	methods, err := buildAuthMethods(opts)
	if err != nil {
		return nil, err
	}

	hostKeys, err := hostKeyCallback(opts.KnownHosts)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	config := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            methods,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// buildAuthMethods assembles auth in preference order: ssh-agent, the
// configured key, then default key locations.
func buildAuthMethods(opts Options) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		if conn, err := net.Dial("unix", socket); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	keyPaths := []string{}
	if opts.KeyPath != "" {
		keyPaths = append(keyPaths, opts.KeyPath)
	} else {
		for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
			keyPaths = append(keyPaths, filepath.Join(homeSSHDir(), name))
		}
	}
	for _, path := range keyPaths {
		auth, err := privateKeyAuth(path, opts.Passphrase)
		if err != nil {
			if opts.KeyPath != "" {
				// An explicitly configured key that fails to load is an error;
				// missing default keys are not.
				return nil, fmt.Errorf("load key %s: %w", path, err)
			}
			continue
		}
		methods = append(methods, auth)
		break
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no ssh authentication available (no agent, no usable key)")
	}
	return methods, nil
}

func privateKeyAuth(path, passphrase string) (ssh.AuthMethod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

func hostKeyCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		path = filepath.Join(homeSSHDir(), "known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", path, err)
	}
	return cb, nil
}

func homeSSHDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ssh"
	}
	return filepath.Join(home, ".ssh")
}
