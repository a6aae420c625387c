package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INTERVIEW_MAX_ATTEMPTS", "")
	t.Setenv("INTERVIEW_COOLDOWN", "")

	cfg := Load()
	assert.Equal(t, DefaultInterviewConfig(), cfg.Interview)
	assert.Equal(t, int64(10485760), cfg.Storage.MaxFileSize)
	assert.False(t, cfg.Qdrant.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INTERVIEW_MAX_ATTEMPTS", "5")
	t.Setenv("INTERVIEW_COOLDOWN", "48h")
	t.Setenv("QDRANT_ENABLED", "true")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")

	cfg := Load()
	assert.Equal(t, 5, cfg.Interview.MaxAttempts)
	assert.Equal(t, 48*time.Hour, cfg.Interview.Cooldown)
	assert.True(t, cfg.Qdrant.Enabled)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
}

func TestInterviewConfigValidate(t *testing.T) {
	require.NoError(t, DefaultInterviewConfig().Validate())

	tests := []struct {
		name  string
		tweak func(*InterviewConfig)
	}{
		{"pass score above 100", func(c *InterviewConfig) { c.MinPassScore = 101 }},
		{"no attempts", func(c *InterviewConfig) { c.MaxAttempts = 0 }},
		{"negative cooldown", func(c *InterviewConfig) { c.Cooldown = -time.Second }},
		{"inverted question bounds", func(c *InterviewConfig) { c.MinQuestions, c.MaxQuestions = 10, 5 }},
		{"zero commit timeout", func(c *InterviewConfig) { c.CommitTimeout = 0 }},
		{"zero start timeout", func(c *InterviewConfig) { c.StartTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultInterviewConfig()
			tt.tweak(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigValidateRequiresSecrets(t *testing.T) {
	cfg := &Config{Interview: DefaultInterviewConfig(), Worker: WorkerConfig{Concurrency: 1}}
	assert.ErrorContains(t, cfg.Validate(), "GEMINI_API_KEY")

	cfg.Gemini.APIKey = "k"
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg.Auth.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())
}
