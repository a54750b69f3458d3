package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()
	assert.Equal(t, "http://localhost:8080", c.ServerURL)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Empty(t, c.UserID)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "client.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"server_url": "https://gallery.example.com",
		"user_id": "from-file",
		"request_timeout": "5s",
		"online_check_interval": "7s"
	}`), 0o600))

	tests := []struct {
		name    string
		args    []string
		want    func(*Config)
		wantErr bool
	}{
		{name: "defaults", args: nil, want: func(*Config) {}},
		{
			name: "flags",
			args: []string{"-a", "http://127.0.0.1:9090", "-u", "alice", "-i", "10", "-x", "ignored"},
			want: func(c *Config) {
				c.ServerURL = "http://127.0.0.1:9090"
				c.UserID = "alice"
				c.OnlineCheckInterval = 10 * time.Second
			},
		},
		{
			name: "file then flags",
			args: []string{"-c", file, "-u", "bob"},
			want: func(c *Config) {
				c.ServerURL = "https://gallery.example.com"
				c.UserID = "bob"
				c.RequestTimeout = 5 * time.Second
				c.OnlineCheckInterval = 7 * time.Second
			},
		},
		{name: "bad interval", args: []string{"-i", "abc"}, wantErr: true},
		{name: "zero interval", args: []string{"-i", "0"}, wantErr: true},
		{name: "missing file", args: []string{"-c", filepath.Join(dir, "nope.json")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := load(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want := defaults()
			tt.want(want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
