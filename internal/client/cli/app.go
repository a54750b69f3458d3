package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/client"
	"github.com/dmitrijs2005/gophgallery/internal/client/config"
	"github.com/dmitrijs2005/gophgallery/internal/client/repositories/tokens"
	"github.com/dmitrijs2005/gophgallery/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	api     client.Client
	gallery *services.GalleryService
	Mode    Mode
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	api, err := client.NewHTTPClient(c.ServerURL, c.UserID, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	gs := services.NewGalleryService(api, tokens.NewSQLiteRepository(db))

	return &App{
		config:  c,
		db:      db,
		api:     api,
		gallery: gs,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

func (app *App) setMode(mode Mode) {
	if app.Mode != mode {
		app.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (app *App) getStatus() string {
	view := "all"
	if id := app.gallery.CurrentAlbum(); id != services.AllFiles {
		view = "album " + formatID(id)
	}
	s := view
	if n := app.gallery.Selection().SelectedCount(); n > 0 {
		s += " " + pluralize(n, "selected")
	}
	if app.Mode != "" {
		s += " " + string(app.Mode)
	}
	return "(" + s + ")"
}

// Run blocks in the REPL until the user quits or stdin closes.
func (app *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer app.db.Close()

	log.Println("Welcome to the gallery CLI (type 'help' for commands)")

	go app.StartOnlineStatusWatcher(ctx, app.config.OnlineCheckInterval)

	if err := app.gallery.Refresh(ctx); err != nil {
		log.Println(err.Error())
	}

	runREPL(ctx, app, app.getStatus, app.reader)
}

func (app *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := app.api.Ping(pctx)
			cancel()

			if err != nil {
				app.setMode(ModeOffline)
			} else {
				app.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
