package server

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/server/config"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.Log.Level = "error"
	cfg.Database.DSN = filepath.Join(dir, "gallery.db")
	cfg.Storage.Path = filepath.Join(dir, "uploads")
	return cfg
}

func TestNewApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Error(t, app.db.Ping(), "database should be closed after Run")
}

func TestNewApp_DatabaseError(t *testing.T) {
	orig := openDatabase
	t.Cleanup(func() { openDatabase = orig })

	openDatabase = func(context.Context, config.Database) (*sql.DB, repomanager.RepositoryManager, error) {
		return nil, nil, errors.New("boom")
	}

	_, err := NewApp(context.Background(), testConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestNewApp_InvalidTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Timezone = "Mars/Olympus_Mons"

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload pipeline init error")
}
