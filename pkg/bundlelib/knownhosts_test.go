package bundlelib

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func newTestHostKey(t *testing.T) (ssh.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}
	return key, priv
}

func TestTOFUHostKeyCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "known_hosts")
	cb := newTOFUHostKeyCallback(path)
	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}

	first, _ := newTestHostKey(t)
	if err := cb("bundles.example.com:22", addr, first); err != nil {
		t.Fatalf("first contact rejected: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("known_hosts not written: %v", err)
	}
	if !strings.Contains(string(data), "bundles.example.com") {
		t.Fatalf("expected host entry, got %q", data)
	}

	if err := cb("bundles.example.com:22", addr, first); err != nil {
		t.Fatalf("known key rejected: %v", err)
	}

	changed, _ := newTestHostKey(t)
	err = cb("bundles.example.com:22", addr, changed)
	if err == nil || !strings.Contains(err.Error(), "host key changed") {
		t.Fatalf("expected host key changed error, got %v", err)
	}

	other, _ := newTestHostKey(t)
	if err := cb("mirror.example.com:2222", addr, other); err != nil {
		t.Fatalf("second host rejected: %v", err)
	}
	data, _ = os.ReadFile(path)
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Fatalf("expected 2 known_hosts lines, got %d", got)
	}
}

func TestBuildAuthMethods(t *testing.T) {
	t.Run("password", func(t *testing.T) {
		methods, err := buildAuthMethods("hunter2", "")
		if err != nil {
			t.Fatalf("buildAuthMethods: %v", err)
		}
		if len(methods) != 1 {
			t.Fatalf("expected 1 method, got %d", len(methods))
		}
	})

	t.Run("key file", func(t *testing.T) {
		_, priv := newTestHostKey(t)
		block, err := ssh.MarshalPrivateKey(priv, "")
		if err != nil {
			t.Fatalf("MarshalPrivateKey: %v", err)
		}
		keyPath := filepath.Join(t.TempDir(), "id_ed25519")
		if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		methods, err := buildAuthMethods("", keyPath)
		if err != nil {
			t.Fatalf("buildAuthMethods: %v", err)
		}
		if len(methods) != 1 {
			t.Fatalf("expected 1 method, got %d", len(methods))
		}
	})

	t.Run("no method", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "absent")
		_, err := buildAuthMethods("", missing)
		if err == nil || !strings.Contains(err.Error(), missing) {
			t.Fatalf("expected error naming %s, got %v", missing, err)
		}
	})
}

func TestResolveSSHKeyPaths(t *testing.T) {
	if got := resolveSSHKeyPaths("/keys/deploy"); len(got) != 1 || got[0] != "/keys/deploy" {
		t.Fatalf("expected explicit path only, got %v", got)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := resolveSSHKeyPaths("")
	if len(got) != 2 || got[0] != filepath.Join(home, ".ssh", "id_ed25519") {
		t.Fatalf("unexpected default key paths %v", got)
	}
}
