// ABOUTME: Shared helpers for command tests
// ABOUTME: Runs every command against an in-memory backend with an isolated config dir

package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/markalston/record-admin/internal/devserver"
	"golang.org/x/crypto/bcrypt"
)

// startBackend serves a dev backend and points the CLI at it with a fresh
// config directory. Global flags are reset when the test ends.
func startBackend(t *testing.T) *devserver.Server {
	t.Helper()

	srv, err := devserver.New(devserver.Options{BcryptCost: bcrypt.MinCost}, nil)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())

	for _, key := range []string{"RECORD_ADMIN_API_URL", "RECORD_ADMIN_API_TIMEOUT", "RECORD_ADMIN_LOG_LEVEL", "RECORD_ADMIN_LOG_FORMAT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("RECORD_ADMIN_CONFIG_DIR", t.TempDir())
	apiURL = ts.URL + devserver.DefaultPrefix

	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		resetFlags()
	})
	return srv
}

func resetFlags() {
	apiURL = ""
	jsonOutput = false
	configPath = ""
	loginUsername = ""
	changeUsername = ""
	passwordStdin = false
	tokenName = ""
	tokenExpiryDays = 30
	devAddr = ""
	devUsersFile = ""
}

// signIn signs in through the login command, failing the test on error
func signIn(t *testing.T, username, password string) {
	t.Helper()

	var buf bytes.Buffer
	if code := loginWith(username, password, &buf); code != exitOK {
		t.Fatalf("login as %s failed with exit code %d: %s", username, code, buf.String())
	}
}

func loginWith(username, password string, w *bytes.Buffer) int {
	loginUsername = username
	passwordStdin = true
	defer func() {
		loginUsername = ""
		passwordStdin = false
	}()
	return runLogin(context.Background(), strings.NewReader(password+"\n"), w)
}

func assertContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Errorf("expected output to contain %q, got:\n%s", want, output)
	}
}

// startBackendKeepingConfig replaces the backend with a fresh one while the
// CLI keeps its config directory, as after a backend restart
func startBackendKeepingConfig(t *testing.T) {
	t.Helper()

	srv, err := devserver.New(devserver.Options{BcryptCost: bcrypt.MinCost}, nil)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	apiURL = ts.URL + devserver.DefaultPrefix
}
