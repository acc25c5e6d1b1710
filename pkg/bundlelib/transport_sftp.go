package bundlelib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var _ Transporter = (*SFTPTransporter)(nil)

// SFTPTransporter fetches bundles from sftp:// origins. Authentication
// uses the password in the origin URL or, failing that, a private key.
// Host keys are trusted on first use and pinned in KnownHostsPath.
type SFTPTransporter struct {
	KnownHostsPath string
	KeyPath        string
}

// NewSFTPTransporter creates an SFTPTransporter. An empty keyPath falls
// back to ~/.ssh/id_ed25519 and ~/.ssh/id_rsa.
func NewSFTPTransporter(knownHostsPath, keyPath string) *SFTPTransporter {
	return &SFTPTransporter{KnownHostsPath: knownHostsPath, KeyPath: keyPath}
}

func (t *SFTPTransporter) connect(ctx context.Context, host, user, password string) (*ssh.Client, *sftp.Client, error) {
	auth, err := buildAuthMethods(password, t.KeyPath)
	if err != nil {
		return nil, nil, err
	}
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: newTOFUHostKeyCallback(t.KnownHostsPath),
	}

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(nc, host, config)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	sshConn := ssh.NewClient(c, chans, reqs)
	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, nil, err
	}
	return sshConn, sftpClient, nil
}

// Load opens the remote file and reads it over the SFTP subsystem.
func (t *SFTPTransporter) Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error) {
	u, err := joinOriginURL(origin, name)
	if err != nil {
		return nil, newTransportError("sftp", "url", name, err)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, newTransportError("sftp", "url", name, fmt.Errorf("origin %q has no user", u.Redacted()))
	}
	password, _ := u.User.Password()
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "22")
	}

	sshConn, client, err := t.connect(ctx, host, u.User.Username(), password)
	if err != nil {
		return nil, newTransportError("sftp", "connect", name, err)
	}
	defer sshConn.Close()
	defer client.Close()
	// Closing the SSH connection unblocks a stalled read.
	stop := context.AfterFunc(ctx, func() {
		sshConn.Close()
	})
	defer stop()

	f, err := client.Open(u.Path)
	if err != nil {
		return nil, newTransportError("sftp", "open", name, err)
	}
	defer f.Close()

	var size int64
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}
	data, err := readWithProgress(ctx, f, size, progress)
	if err != nil {
		return nil, newTransportError("sftp", "read", name, err)
	}
	b, err := ParseBundle(name, data)
	if err != nil {
		return nil, newTransportError("sftp", "parse", name, err)
	}
	return b, nil
}

// buildAuthMethods prefers password auth, then the first readable key.
func buildAuthMethods(password, keyPath string) ([]ssh.AuthMethod, error) {
	if password != "" {
		return []ssh.AuthMethod{ssh.Password(password)}, nil
	}

	keyPaths := resolveSSHKeyPaths(keyPath)
	for _, kp := range keyPaths {
		pemBytes, err := os.ReadFile(kp)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pemBytes)
		if err != nil {
			var ppErr *ssh.PassphraseMissingError
			if errors.As(err, &ppErr) {
				return nil, fmt.Errorf("sftp: SSH key %q is passphrase-protected; passphrase-protected keys are not supported", kp)
			}
			continue
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return nil, fmt.Errorf("sftp: no authentication method available; provide a password in the origin or an SSH key at %s", strings.Join(keyPaths, ", "))
}

func resolveSSHKeyPaths(explicitPath string) []string {
	if explicitPath != "" {
		return []string{explicitPath}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
}
