package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/client/selection"
	"github.com/dmitrijs2005/gophgallery/internal/client/services"
)

var errUsage = errors.New("wrong arguments, type 'help'")

func (a *App) List(ctx context.Context) error {
	files := a.gallery.Visible()
	if len(files) == 0 {
		fmt.Fprintln(a.out, "(no files)")
		return nil
	}
	sel := a.gallery.Selection()
	for _, f := range files {
		mark := " "
		if sel.IsSelected(f.Name) {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %-40s %8s  %s\n", mark, f.Name, humanSize(f.Size), f.URL)
	}
	return nil
}

func (a *App) Albums(ctx context.Context) error {
	albums, err := a.gallery.Albums(ctx)
	if err != nil {
		return err
	}
	if len(albums) == 0 {
		fmt.Fprintln(a.out, "(no albums)")
		return nil
	}
	for _, al := range albums {
		owner := "shared"
		if al.OwnerID != "" {
			owner = al.OwnerID
		}
		fmt.Fprintf(a.out, "%4d  %-30s %s  [%s]\n", al.ID, al.Name, pluralize(al.FileCount, "file"), owner)
	}
	return nil
}

func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id := services.AllFiles
	if args[0] != "all" {
		var err error
		if id, err = parseID(args[0]); err != nil {
			return err
		}
	}
	if err := a.gallery.Open(ctx, id); err != nil {
		return err
	}
	return a.List(ctx)
}

func (a *App) Select(_ context.Context, args []string) error {
	return a.click(args, selection.ModifierNone)
}

func (a *App) Toggle(_ context.Context, args []string) error {
	return a.click(args, selection.ModifierToggle)
}

func (a *App) Extend(_ context.Context, args []string) error {
	return a.click(args, selection.ModifierRange)
}

func (a *App) click(args []string, m selection.Modifier) error {
	if len(args) != 1 {
		return errUsage
	}
	a.gallery.Selection().Click(args[0], m)
	return nil
}

func (a *App) SelectAll(context.Context) error {
	a.gallery.Selection().SelectAll()
	return nil
}

func (a *App) Clear(context.Context) error {
	a.gallery.Selection().Clear()
	return nil
}

func (a *App) Selected(context.Context) error {
	sel := a.gallery.Selection()
	if !sel.HasSelection() {
		fmt.Fprintln(a.out, "(nothing selected)")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s mode): %s\n", pluralize(sel.SelectedCount(), "file"), sel.Mode(), strings.Join(sel.SelectedFiles(), ", "))
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	up, err := a.gallery.Upload(ctx, filepath.Base(args[0]), data)
	if up != nil {
		fmt.Fprintf(a.out, "Uploaded %s\n  url:   %s\n", up.Artifact.Name, up.URL)
		if up.ThumbnailURL != "" {
			fmt.Fprintf(a.out, "  thumb: %s\n", up.ThumbnailURL)
		}
		if up.Warning != "" {
			fmt.Fprintf(a.out, "  warning: %s\n", up.Warning)
		}
	}
	return err
}

func (a *App) NewAlbum(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Album name", a.out)
	if err != nil {
		return err
	}
	desc, err := GetSimpleText(a.reader, "Description (optional)", a.out)
	if err != nil {
		return err
	}
	shared, err := Confirm(a.reader, "Visible to everyone?", a.out)
	if err != nil {
		return err
	}
	al, err := a.gallery.CreateAlbum(ctx, name, desc, shared)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created album %d %q\n", al.ID, al.Name)
	return nil
}

func (a *App) AddTo(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := parseID(s)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	results, err := a.gallery.AddSelectionTo(ctx, ids...)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(a.out, "album %d: ok\n", r.AlbumID)
		} else {
			fmt.Fprintf(a.out, "album %d: %s\n", r.AlbumID, r.Message)
		}
	}
	return nil
}

func (a *App) RemoveFromAlbum(ctx context.Context) error {
	n := a.gallery.Selection().SelectedCount()
	if err := a.gallery.RemoveSelectionFromAlbum(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s from album %d\n", pluralize(n, "file"), a.gallery.CurrentAlbum())
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	n := a.gallery.Selection().SelectedCount()
	if n == 0 {
		return services.ErrEmptySelection
	}
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete %s permanently?", pluralize(n, "file")), a.out)
	if err != nil || !ok {
		return err
	}

	res, err := a.gallery.DeleteSelection(ctx)
	if res != nil {
		for _, name := range res.Deleted {
			fmt.Fprintf(a.out, "deleted %s\n", name)
		}
		for _, name := range res.NoToken {
			fmt.Fprintf(a.out, "skipped %s: not uploaded from this client\n", name)
		}
		for name, ferr := range res.Failed {
			fmt.Fprintf(a.out, "failed %s: %v\n", name, ferr)
		}
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid album id %q", s)
	}
	return id, nil
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func pluralize(n int, noun string) string {
	if n == 1 || strings.HasSuffix(noun, "ed") {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
