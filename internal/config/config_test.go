package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear relevant envs
	os.Unsetenv("PORT")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("DIRECTOR_URL")
	os.Unsetenv("SPEECH_TIMEOUT_SEC")

	c := Load()

	if c.Server.Port != "8001" {
		t.Fatalf("expected default port 8001, got %q", c.Server.Port)
	}
	if c.Director.URL != "http://localhost:8006" {
		t.Fatalf("expected default director url, got %q", c.Director.URL)
	}
	if c.Gate.SpeechTimeout != 60*time.Second {
		t.Fatalf("expected 60s speech timeout, got %v", c.Gate.SpeechTimeout)
	}
	if c.Gate.PostSpeechCooldown != 5*time.Second {
		t.Fatalf("expected 5s post-speech cooldown, got %v", c.Gate.PostSpeechCooldown)
	}
	if c.Gate.MaxTrackedEvents != 50 {
		t.Fatalf("expected 50 tracked events, got %d", c.Gate.MaxTrackedEvents)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	os.Setenv("PORT", "9001")
	os.Setenv("POST_RESPONSE_COOLDOWN_SEC", "2.5")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("POST_RESPONSE_COOLDOWN_SEC")

	c := Load()

	if c.Server.Port != "9001" {
		t.Fatalf("expected port 9001, got %q", c.Server.Port)
	}
	if c.Gate.PostResponseCooldown != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s post-response cooldown, got %v", c.Gate.PostResponseCooldown)
	}
}
