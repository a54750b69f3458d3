package selection

import (
	"slices"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
)

// Modifier describes the key held during a click.
type Modifier int

const (
	// ModifierNone selects only the clicked item.
	ModifierNone Modifier = iota
	// ModifierToggle (ctrl/cmd) flips the clicked item.
	ModifierToggle
	// ModifierRange (shift) extends from the anchor to the clicked item.
	ModifierRange
)

// Controller holds the selection for one gallery view. It is not safe for
// concurrent use; UI state is mutated from a single goroutine.
type Controller struct {
	state   State
	visible []models.Artifact
}

func NewController(visible []models.Artifact) *Controller {
	c := &Controller{}
	c.SetVisible(visible)
	return c
}

// SetVisible replaces the ordering used by Range, SelectAll and
// SelectedFilesData. The selection itself is kept.
func (c *Controller) SetVisible(visible []models.Artifact) {
	c.visible = slices.Clone(visible)
}

func (c *Controller) State() State { return c.state }

// Visible returns the current ordering.
func (c *Controller) Visible() []models.Artifact { return slices.Clone(c.visible) }

func (c *Controller) Dispatch(a Action) {
	c.state = Reduce(c.state, a)
}

func (c *Controller) Add(names ...string)    { c.Dispatch(Add{Names: names}) }
func (c *Controller) Remove(names ...string) { c.Dispatch(Remove{Names: names}) }
func (c *Controller) Toggle(name string)     { c.Dispatch(Toggle{Name: name}) }
func (c *Controller) Clear()                 { c.Dispatch(Clear{}) }

func (c *Controller) Range(start, end string) {
	c.Dispatch(Range{Start: start, End: end, Visible: c.visibleNames()})
}

func (c *Controller) SelectAll() {
	c.Dispatch(SelectAll{Visible: c.visibleNames()})
}

// Click applies the plain/ctrl/shift interaction rule. A shift-click
// without an anchor behaves like a ctrl-click.
func (c *Controller) Click(name string, m Modifier) {
	switch m {
	case ModifierToggle:
		c.Toggle(name)
	case ModifierRange:
		if c.state.LastSelected == "" {
			c.Toggle(name)
			return
		}
		c.Range(c.state.LastSelected, name)
	default:
		c.Clear()
		c.Toggle(name)
	}
}

func (c *Controller) SelectedCount() int       { return len(c.state.Selected) }
func (c *Controller) HasSelection() bool       { return len(c.state.Selected) > 0 }
func (c *Controller) IsMultiSelect() bool      { return c.state.Mode() == ModeMulti }
func (c *Controller) IsSelected(n string) bool { return c.state.Contains(n) }
func (c *Controller) Mode() Mode               { return c.state.Mode() }

// SelectedFiles returns the selected names in selection order.
func (c *Controller) SelectedFiles() []string {
	return slices.Clone(c.state.Selected)
}

// SelectedFilesData hydrates the selection against the visible artifacts.
// Selected names that are no longer visible are skipped.
func (c *Controller) SelectedFilesData() []models.Artifact {
	byName := make(map[string]models.Artifact, len(c.visible))
	for _, a := range c.visible {
		byName[a.Name] = a
	}
	out := make([]models.Artifact, 0, len(c.state.Selected))
	for _, n := range c.state.Selected {
		if a, ok := byName[n]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (c *Controller) visibleNames() []string {
	names := make([]string, len(c.visible))
	for i, a := range c.visible {
		names[i] = a.Name
	}
	return names
}
