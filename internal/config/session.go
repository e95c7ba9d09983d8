package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override the session file.
const (
	EnvBaseURL  = "CAMPUSMSG_API_BASE_URL"
	EnvUserID   = "CAMPUSMSG_USER_ID"
	EnvUserType = "CAMPUSMSG_USER_TYPE"
)

var (
	ErrMissingBaseURL = errors.New("api_base_url is not configured")
	ErrMissingUser    = errors.New("user_id and user_type are not configured")
)

// Duration is a time.Duration that reads and writes TOML strings like "5s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Intervals are the polling cadences.
type Intervals struct {
	Conversations Duration `toml:"conversations"`
	ActiveUsers   Duration `toml:"active_users"`
	Messages      Duration `toml:"messages"`
	Heartbeat     Duration `toml:"heartbeat"`
}

// PageSizes are the page sizes requested from the backend.
type PageSizes struct {
	Conversations int `toml:"conversations"`
	ActiveUsers   int `toml:"active_users"`
	Messages      int `toml:"messages"`
}

// Endpoints override individual backend paths. Empty entries keep the stock path.
type Endpoints struct {
	Conversations string `toml:"conversations"`
	ActiveUsers   string `toml:"active_users"`
	SearchUsers   string `toml:"search_users"`
	Messages      string `toml:"messages"`
	Send          string `toml:"send"`
	Edit          string `toml:"edit"`
	Unsend        string `toml:"unsend"`
	MarkRead      string `toml:"mark_read"`
	UpdateSession string `toml:"update_session"`
	UnreadCount   string `toml:"unread_count"`
}

// Session is the per-session config.toml.
type Session struct {
	APIBaseURL string    `toml:"api_base_url"`
	UserID     int64     `toml:"user_id"`
	UserType   string    `toml:"user_type"`
	Timeout    Duration  `toml:"timeout"`
	EditWindow Duration  `toml:"edit_window"`
	Intervals  Intervals `toml:"intervals"`
	PageSizes  PageSizes `toml:"page_sizes"`
	Endpoints  Endpoints `toml:"endpoints"`
	// FailureThreshold is the number of consecutive poll failures that
	// degrade the session.
	FailureThreshold int `toml:"failure_threshold"`
	// Timezone is the IANA zone of the backend's naive timestamps. Empty
	// means the local zone.
	Timezone string `toml:"timezone,omitempty"`
}

// Defaults returns a Session with every tunable set.
func Defaults() *Session {
	s := &Session{}
	s.applyDefaults()
	return s
}

func (s *Session) applyDefaults() {
	setDuration(&s.Timeout, 10*time.Second)
	setDuration(&s.EditWindow, 3*time.Minute)
	setDuration(&s.Intervals.Conversations, 2*time.Second)
	setDuration(&s.Intervals.ActiveUsers, 5*time.Second)
	setDuration(&s.Intervals.Messages, 5*time.Second)
	setDuration(&s.Intervals.Heartbeat, 30*time.Second)
	setInt(&s.PageSizes.Conversations, 20)
	setInt(&s.PageSizes.ActiveUsers, 20)
	setInt(&s.PageSizes.Messages, 30)
	setInt(&s.FailureThreshold, 3)
}

func setDuration(d *Duration, def time.Duration) {
	if d.Duration <= 0 {
		d.Duration = def
	}
}

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// LoadSession reads the session config at path, overlays the environment
// and applies defaults. A missing file yields defaults; envFile, when it
// exists, supplies environment values the process does not already set.
func LoadSession(path, envFile string) (*Session, error) {
	var s Session
	if _, err := toml.DecodeFile(path, &s); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		if m != nil {
			dotenv = m
		}
	}
	if err := s.overlay(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}); err != nil {
		return nil, err
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Session) overlay(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		s.APIBaseURL = v
	}
	if v, ok := lookup(EnvUserType); ok && v != "" {
		s.UserType = v
	}
	if v, ok := lookup(EnvUserID); ok && v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvUserID, err)
		}
		s.UserID = id
	}
	return nil
}

// Location resolves Timezone.
func (s *Session) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

// SaveSession writes s to path.
func SaveSession(path string, s *Session) error {
	return writeTOML(path, s)
}

// Validate reports whether the session can reach the backend.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.APIBaseURL) == "" {
		return ErrMissingBaseURL
	}
	if s.UserID <= 0 || strings.TrimSpace(s.UserType) == "" {
		return ErrMissingUser
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}
