package panicctl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	settings := &Settings{ServerURL: "http://localhost:8080", ReporterID: "r1"}

	require.NoError(t, Validate(settings))

	assert.Equal(t, DefaultArmingWindow, settings.ArmingWindow)
	assert.Equal(t, DefaultTimeout, settings.Timeout)
	assert.Equal(t, DefaultEmergencyNumber, settings.EmergencyNumber)
	assert.Equal(t, "info", settings.LogLevel)
}

func TestValidate_Errors(t *testing.T) {
	lat := 10.0
	bad := 200.0

	tests := []struct {
		name     string
		settings Settings
	}{
		{"missing server", Settings{ReporterID: "r1"}},
		{"invalid server", Settings{ServerURL: "localhost", ReporterID: "r1"}},
		{"missing reporter", Settings{ServerURL: "http://localhost:8080"}},
		{"partial location", Settings{ServerURL: "http://localhost:8080", ReporterID: "r1", Latitude: &lat}},
		{"longitude out of range", Settings{ServerURL: "http://localhost:8080", ReporterID: "r1", Latitude: &lat, Longitude: &bad}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(&tt.settings))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSettingsFilename)
	contents := `
server_url: http://dispatch.local:8080
api_key: secret
reporter_id: user-42
arming_window: 5s
latitude: 55.75
longitude: 37.61
emergency_number: "911"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	settings, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "user-42", settings.ReporterID)
	assert.Equal(t, 5*time.Second, settings.ArmingWindow)
	assert.Equal(t, DefaultTimeout, settings.Timeout)
	require.NotNil(t, settings.Latitude)
	assert.Equal(t, 55.75, *settings.Latitude)
	assert.Equal(t, "911", settings.EmergencyNumber)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
