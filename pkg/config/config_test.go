package config

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/envelope"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"INTAKE_API_BASE_URL": "https://api.example.edu"})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.edu", cfg.APIBaseURL)
	assert.Equal(t, envelope.DefaultKeys(), cfg.Keys())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxResponseBytes)
	assert.Equal(t, media.DefaultOptions(), cfg.MediaOptions())
	assert.Equal(t, media.EncodingDataURI, cfg.Encoding())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"INTAKE_API_BASE_URL":    "http://localhost:8080",
		"INTAKE_ENVELOPE_KEY":    strings.Repeat("k", 32),
		"INTAKE_ENVELOPE_IV":     strings.Repeat("i", 16),
		"INTAKE_REQUEST_TIMEOUT": "5s",
		"INTAKE_IMAGE_MAX_WIDTH": "800",
		"INTAKE_IMAGE_QUALITY":   "0.5",
		"INTAKE_MEDIA_ENCODING":  "raw",
		"INTAKE_LOG_LEVEL":       "debug",
		"INTAKE_LOG_FORMAT":      "json",
	})
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("k", 32), cfg.EnvelopeKey)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 800, cfg.ImageMaxWidth)
	assert.Equal(t, 0.5, cfg.ImageQuality)
	assert.Equal(t, media.EncodingRaw, cfg.Encoding())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromInvalid(t *testing.T) {
	base := "https://api.example.edu"
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"missing url", map[string]string{}, ErrMissingBaseURL},
		{"relative url", map[string]string{"INTAKE_API_BASE_URL": "/api"}, ErrInvalidBaseURL},
		{"short key", map[string]string{"INTAKE_API_BASE_URL": base, "INTAKE_ENVELOPE_KEY": "short"}, envelope.ErrInvalidKeySize},
		{"zero timeout", map[string]string{"INTAKE_API_BASE_URL": base, "INTAKE_REQUEST_TIMEOUT": "0s"}, ErrInvalidTimeout},
		{"quality", map[string]string{"INTAKE_API_BASE_URL": base, "INTAKE_IMAGE_QUALITY": "2"}, media.ErrInvalidQuality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := LoadFrom(map[string]string{"INTAKE_API_BASE_URL": base, "INTAKE_MEDIA_ENCODING": "hex"})
	assert.Error(t, err)

	_, err = LoadFrom(map[string]string{"INTAKE_API_BASE_URL": base, "INTAKE_REQUEST_TIMEOUT": "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadFromProcessEnv(t *testing.T) {
	t.Setenv("INTAKE_API_BASE_URL", "https://env.example.edu")
	t.Setenv("INTAKE_MAX_RESPONSE_BYTES", "2048")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.edu", cfg.APIBaseURL)
	assert.Equal(t, int64(2048), cfg.MaxResponseBytes)
}

func TestDefault(t *testing.T) {
	cfg, err := Default("https://api.example.edu")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, envelope.DefaultKey, cfg.EnvelopeKey)

	_, err = Default("")
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = Default("ftp://api.example.edu")
	assert.ErrorIs(t, err, ErrInvalidBaseURL)
}

func TestExitf(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		Exitf("fatal: %s", "something broke")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitf$")
	cmd.Env = append(os.Environ(), "TEST_EXITF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(out), "fatal: something broke")
}

func TestLoadKeys(t *testing.T) {
	keys, err := LoadKeys()
	require.NoError(t, err)
	assert.Equal(t, envelope.DefaultKeys(), keys)

	t.Setenv("INTAKE_ENVELOPE_IV", "short")
	_, err = LoadKeys()
	assert.ErrorIs(t, err, envelope.ErrInvalidIVSize)
}
