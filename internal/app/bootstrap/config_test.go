package bootstrap

import (
	"strings"
	"testing"
	"time"
)

func validConfig() AppConfig {
	return AppConfig{
		UsersCollection:  "users",
		SessionKey:       "a-production-strength-session-key-0123456789",
		SessionMaxAge:    24 * time.Hour,
		LiveMode:         LiveModeChangeStream,
		LivePollInterval: 5 * time.Second,
		SSEHeartbeat:     25 * time.Second,
	}
}

func TestValidateApp(t *testing.T) {
	tests := []struct {
		name    string
		prod    bool
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"defaults", true, func(*AppConfig) {}, ""},
		{"poll mode", false, func(c *AppConfig) { c.LiveMode = LiveModePoll }, ""},
		{"unknown mode", false, func(c *AppConfig) { c.LiveMode = "push" }, "live_mode"},
		{"poll too fast", false, func(c *AppConfig) {
			c.LiveMode = LiveModePoll
			c.LivePollInterval = 100 * time.Millisecond
		}, "live_poll_interval"},
		{"short key in dev", false, func(c *AppConfig) { c.SessionKey = "short" }, ""},
		{"short key in prod", true, func(c *AppConfig) { c.SessionKey = "short" }, "session_key"},
		{"dev login in dev", false, func(c *AppConfig) { c.DevLogin = true }, ""},
		{"dev login in prod", true, func(c *AppConfig) { c.DevLogin = true }, "dev_login"},
		{"no collection", false, func(c *AppConfig) { c.UsersCollection = "" }, "users_collection"},
		{"zero session age", false, func(c *AppConfig) { c.SessionMaxAge = 0 }, "session_max_age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validateApp(tt.prod, cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSupportsChangeStreams(t *testing.T) {
	tests := []struct {
		name  string
		hello map[string]interface{}
		want  bool
	}{
		{"replica set", map[string]interface{}{"setName": "rs0", "isWritablePrimary": true}, true},
		{"mongos", map[string]interface{}{"msg": "isdbgrid"}, true},
		{"standalone", map[string]interface{}{"isWritablePrimary": true}, false},
	}
	for _, tt := range tests {
		if got := supportsChangeStreams(tt.hello); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
