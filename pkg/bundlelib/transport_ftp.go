package bundlelib

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

var _ Transporter = (*FTPTransporter)(nil)

// FTPTransporter fetches bundles from ftp:// and ftps:// origins.
// Credentials are taken from the origin URL and default to anonymous.
type FTPTransporter struct {
	// DialTimeout bounds connection setup. Zero means 30 seconds.
	DialTimeout time.Duration
	// TLSConfig, when set, is used for ftps:// origins instead of the default.
	TLSConfig *tls.Config
}

// NewFTPTransporter creates an FTPTransporter with default settings.
func NewFTPTransporter() *FTPTransporter {
	return &FTPTransporter{}
}

func (t *FTPTransporter) connect(ctx context.Context, host, user, password string, useTLS bool) (*ftp.ServerConn, error) {
	timeout := t.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	dialOpts := []ftp.DialOption{
		ftp.DialWithTimeout(timeout),
		ftp.DialWithContext(ctx),
	}
	if useTLS {
		cfg := t.TLSConfig
		if cfg == nil {
			hostname := host
			if h, _, err := net.SplitHostPort(host); err == nil {
				hostname = h
			}
			cfg = &tls.Config{
				ServerName: hostname,
				MinVersion: tls.VersionTLS12,
			}
		}
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(cfg))
	}

	conn, err := ftp.Dial(host, dialOpts...)
	if err != nil {
		return nil, err
	}
	if err := conn.Login(user, password); err != nil {
		conn.Quit()
		return nil, err
	}
	return conn, nil
}

// Load retrieves the bundle in binary mode over a single connection.
func (t *FTPTransporter) Load(ctx context.Context, name, origin string, progress ProgressFunc) (*Bundle, error) {
	u, err := joinOriginURL(origin, name)
	if err != nil {
		return nil, newTransportError("ftp", "url", name, err)
	}

	user, password := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			password = p
		}
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "21")
	}

	conn, err := t.connect(ctx, host, user, password, strings.EqualFold(u.Scheme, "ftps"))
	if err != nil {
		return nil, newTransportError("ftp", "connect", name, err)
	}
	defer conn.Quit()

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		return nil, newTransportError("ftp", "type", name, err)
	}
	size, err := conn.FileSize(u.Path)
	if err != nil {
		return nil, newTransportError("ftp", "size", name, err)
	}
	resp, err := conn.Retr(u.Path)
	if err != nil {
		return nil, newTransportError("ftp", "retr", name, err)
	}
	defer resp.Close()
	stop := context.AfterFunc(ctx, func() {
		resp.SetDeadline(time.Now())
	})
	defer stop()

	data, err := readWithProgress(ctx, resp, size, progress)
	if err != nil {
		return nil, newTransportError("ftp", "read", name, err)
	}
	b, err := ParseBundle(name, data)
	if err != nil {
		return nil, newTransportError("ftp", "parse", name, err)
	}
	return b, nil
}
