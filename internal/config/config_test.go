package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{DefaultSession: "work"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBaseURL, EnvUserID, EnvUserType} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestLoadSessionDefaults(t *testing.T) {
	clearEnv(t)
	s, err := LoadSession(filepath.Join(t.TempDir(), "missing.toml"), "")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"conversations", s.Intervals.Conversations.Duration, 2 * time.Second},
		{"active users", s.Intervals.ActiveUsers.Duration, 5 * time.Second},
		{"messages", s.Intervals.Messages.Duration, 5 * time.Second},
		{"heartbeat", s.Intervals.Heartbeat.Duration, 30 * time.Second},
		{"timeout", s.Timeout.Duration, 10 * time.Second},
		{"edit window", s.EditWindow.Duration, 3 * time.Minute},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if s.PageSizes.Messages != 30 || s.FailureThreshold != 3 {
		t.Errorf("page sizes = %+v, threshold = %d", s.PageSizes, s.FailureThreshold)
	}
	if !errors.Is(s.Validate(), ErrMissingBaseURL) {
		t.Errorf("Validate() = %v, want ErrMissingBaseURL", s.Validate())
	}
}

func TestSessionRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	in := Defaults()
	in.APIBaseURL = "https://campus.example.edu/api"
	in.UserID = 42
	in.UserType = "student"
	in.Intervals.Conversations = Duration{4 * time.Second}
	in.Endpoints.Send = "/v2/send.php"
	if err := SaveSession(path, in); err != nil {
		t.Fatal(err)
	}

	out, err := LoadSession(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if out.Intervals.Conversations.Duration != 4*time.Second {
		t.Errorf("conversations interval = %v", out.Intervals.Conversations)
	}
	if out.Endpoints.Send != "/v2/send.php" || out.UserID != 42 {
		t.Errorf("session = %+v", out)
	}
	if err := out.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestEnvOverlay(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	data := EnvBaseURL + "=http://from-dotenv\n" + EnvUserID + "=7\n" + EnvUserType + "=teacher\n"
	if err := os.WriteFile(envFile, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvBaseURL, "http://from-process")

	s, err := LoadSession(filepath.Join(dir, "config.toml"), envFile)
	if err != nil {
		t.Fatal(err)
	}
	if s.APIBaseURL != "http://from-process" {
		t.Errorf("base url = %q, process env must win", s.APIBaseURL)
	}
	if s.UserID != 7 || s.UserType != "teacher" {
		t.Errorf("user = %d/%s, want 7/teacher from .env", s.UserID, s.UserType)
	}
}

func TestSessionTimezone(t *testing.T) {
	s := Defaults()
	loc, err := s.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("Location() = %v, %v; want local", loc, err)
	}

	s.Timezone = "America/Fortaleza"
	loc, err = s.Location()
	if err != nil {
		t.Fatal(err)
	}
	if loc.String() != "America/Fortaleza" {
		t.Errorf("Location() = %s", loc)
	}

	s.APIBaseURL = "http://x"
	s.UserID = 1
	s.UserType = "student"
	s.Timezone = "Mars/Olympus"
	if err := s.Validate(); err == nil {
		t.Error("Validate() accepted an unknown timezone")
	}
}

func TestEnvOverlayRejectsBadID(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvUserID, "abc")
	if _, err := LoadSession(filepath.Join(t.TempDir(), "c.toml"), ""); err == nil {
		t.Error("expected error for non-numeric user id")
	}
}
