package config

import (
	"testing"
	"time"
)

func TestBuildRedisURL(t *testing.T) {
	tests := []struct {
		name string
		r    RedisConfig
		want string
	}{
		{"host port db", RedisConfig{Host: "localhost", Port: 6379, DB: 0}, "redis://localhost:6379/0"},
		{"with password", RedisConfig{Host: "cache.local", Port: 6380, DB: 2, Password: "secret"}, "redis://:secret@cache.local:6380/2"},
		{"explicit URL wins", RedisConfig{Host: "ignored", Port: 1, URL: "redis://other:6379/5"}, "redis://other:6379/5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildRedisURL(tt.r); got != tt.want {
				t.Errorf("buildRedisURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseEnv(t *testing.T) {
	tests := []struct {
		in   string
		want Environment
	}{
		{"dev", EnvDevelopment},
		{"test", EnvTest},
		{"prod", EnvProduction},
		{"production", EnvProduction},
		{"", EnvDevelopment},
		{"staging", EnvDevelopment},
	}

	for _, tt := range tests {
		if got := parseEnv(tt.in); got != tt.want {
			t.Errorf("parseEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"15m", 15 * time.Minute},
		{"30s", 30 * time.Second},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		if got := parseDuration(tt.in); got != tt.want {
			t.Errorf("parseDuration(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLockoutValidateDefaults(t *testing.T) {
	l := LockoutConfig{}
	l.validate()

	if l.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", l.MaxAttempts)
	}
	if l.Window != 15*time.Minute {
		t.Errorf("Window = %s, want 15m", l.Window)
	}
	if l.Cooldown != 5*time.Minute {
		t.Errorf("Cooldown = %s, want 5m", l.Cooldown)
	}
}

func TestLockoutValidateKeepsExplicitValues(t *testing.T) {
	l := LockoutConfig{MaxAttempts: 3, Window: time.Minute, Cooldown: 30 * time.Second}
	l.validate()

	if l.MaxAttempts != 3 || l.Window != time.Minute || l.Cooldown != 30*time.Second {
		t.Errorf("validate() overwrote explicit values: %+v", l)
	}
}

func TestMaskPassword(t *testing.T) {
	got := maskPassword("redis://:supersecret@localhost:6379/0")
	want := "redis://:***@localhost:6379/0"
	if got != want {
		t.Errorf("maskPassword() = %q, want %q", got, want)
	}
}
