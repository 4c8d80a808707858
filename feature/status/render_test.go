package status

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"ocsync/core/lock"
	"ocsync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() *Report {
	return &Report{
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Remote:      RemoteStatus{URL: "https://cloud.example.com/dav", Configured: true, Reachable: true},
		Mount:       MountStatus{MountPoint: "/home/me/ocsync", Mounted: true},
		Threshold:   3,
		Destinations: []DestinationStatus{
			{
				Name: "ableton", LocalPath: "/home/me/Music/Ableton", RemotePath: "Music/Ableton",
				State: reconcile.Steady, Lock: lock.StateRunning, LockPID: 42, Scheduled: true,
				Failures: 3, LastError: "bisync aborted\nsecond line", Recommendation: "resync ableton",
			},
			{
				Name: "logic", LocalPath: "/home/me/Music/Logic", RemotePath: "Music/Logic",
				State: reconcile.Unseeded, Lock: lock.StateIdle,
				Recommendation: "resync logic [local|remote|newer]",
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatText))
	out := buf.String()

	assert.Contains(t, out, "reachable")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "ableton")
	assert.Contains(t, out, "running (pid 42)")
	assert.Contains(t, out, "unseeded")
	assert.Contains(t, out, "run resync ableton")
	assert.Contains(t, out, "bisync aborted")
	assert.NotContains(t, out, "second line")
	assert.Contains(t, out, "run resync logic [local|remote|newer]")
}

func TestRender_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &Report{}, FormatText))
	assert.Contains(t, buf.String(), "not configured")
	assert.Contains(t, buf.String(), "No destinations")
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatJSON))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Destinations, 2)
	assert.Equal(t, 3, got.Destinations[0].Failures)
	assert.Equal(t, "resync ableton", got.Destinations[0].Recommendation)
	assert.Equal(t, reconcile.Unseeded, got.Destinations[1].State)
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport(), FormatYAML))
	assert.Contains(t, buf.String(), "failure_threshold: 3")

	var got Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Destinations, 2)
	assert.Equal(t, "logic", got.Destinations[1].Name)
	assert.Equal(t, lock.StateRunning, got.Destinations[0].Lock)
}
