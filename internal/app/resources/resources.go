// internal/app/resources/resources.go
package resources

import (
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
)

// FS holds the layout, menu and feed partials every page uses.
//
//go:embed templates/*.gohtml
var FS embed.FS

// Shared lists the partials feature templates call by name.
var Shared = []string{"layout_head", "layout_foot", "menu", "feed_error", "empty_advisory"}

var registerOnce sync.Once

// LoadSharedTemplates registers the shared set once. It fails when a partial
// in Shared is missing, so a broken layout stops startup instead of
// surfacing as a blank page.
func LoadSharedTemplates() error {
	if err := check(); err != nil {
		return err
	}
	registerOnce.Do(func() {
		templates.Register(templates.Set{
			Name:     "shared",
			FS:       FS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
	return nil
}

func check() error {
	t, err := template.New("shared").ParseFS(FS, "templates/*.gohtml")
	if err != nil {
		return fmt.Errorf("parse shared templates: %w", err)
	}
	for _, name := range Shared {
		if t.Lookup(name) == nil {
			return fmt.Errorf("shared template %q is not defined", name)
		}
	}
	return nil
}
