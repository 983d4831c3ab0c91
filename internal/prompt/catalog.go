// Package prompt holds the catalog of named prompt templates used by the
// world-state services.
//
// Templates are data, not logic: each declares its required slot names and
// rendering is plain substitution of {slot} placeholders. The built-in
// catalog ships compiled in; deployments may override individual templates
// with a YAML overlay file without recompiling anything.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrSlotMissing is returned by [Catalog.Render] when a declared slot is not
// supplied by the caller.
var ErrSlotMissing = errors.New("template slot missing")

// ErrUnknownTemplate is returned when no template with the requested name
// exists in the catalog.
var ErrUnknownTemplate = errors.New("unknown template")

// Template is one named prompt with a system part and a user part. Slot
// placeholders use the form {slot_name} and may appear in either part.
type Template struct {
	// Name identifies the template in the catalog.
	Name string `yaml:"name"`

	// System is the system-prompt text.
	System string `yaml:"system"`

	// User is the user-prompt text.
	User string `yaml:"user"`

	// Slots lists the slot names that must be supplied when rendering.
	Slots []string `yaml:"slots"`
}

// Rendered is the outcome of substituting slots into a template.
type Rendered struct {
	System string
	User   string
}

// Catalog is a registry of templates keyed by name. The zero value is not
// usable; construct with [NewCatalog]. Overlay loads may happen while other
// goroutines render.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewCatalog returns a catalog populated with the built-in templates.
func NewCatalog() *Catalog {
	c := &Catalog{templates: make(map[string]Template, len(builtinTemplates))}
	for _, t := range builtinTemplates {
		c.templates[t.Name] = t
	}
	return c
}

// Names returns the sorted template names currently in the catalog.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.templates))
	for n := range c.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the template with the given name.
func (c *Catalog) Get(name string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("prompt: %q: %w", name, ErrUnknownTemplate)
	}
	return t, nil
}

// Render substitutes slots into the named template. Every declared slot must
// be present in slots; extra keys are ignored.
func (c *Catalog) Render(name string, slots map[string]string) (Rendered, error) {
	t, err := c.Get(name)
	if err != nil {
		return Rendered{}, err
	}

	pairs := make([]string, 0, 2*len(t.Slots))
	for _, slot := range t.Slots {
		v, ok := slots[slot]
		if !ok {
			return Rendered{}, fmt.Errorf("prompt: template %q: slot %q: %w", name, slot, ErrSlotMissing)
		}
		pairs = append(pairs, "{"+slot+"}", v)
	}

	r := strings.NewReplacer(pairs...)
	return Rendered{
		System: r.Replace(t.System),
		User:   r.Replace(t.User),
	}, nil
}

// ReplaceFrom atomically swaps this catalog's templates with a copy of
// other's. Used for hot-reloading overlays: build the replacement catalog
// first, then swap, so renders never observe a half-applied overlay.
func (c *Catalog) ReplaceFrom(other *Catalog) error {
	if other == nil {
		return fmt.Errorf("prompt: replace from nil catalog")
	}

	other.mu.RLock()
	next := make(map[string]Template, len(other.templates))
	for n, t := range other.templates {
		next[n] = t
	}
	other.mu.RUnlock()

	c.mu.Lock()
	c.templates = next
	c.mu.Unlock()
	return nil
}

// overlayFile is the YAML shape of a template overlay document.
type overlayFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadOverlay reads a YAML overlay file and replaces the matching built-in
// templates. Templates named in the overlay but absent from the catalog are
// added as new entries.
func (c *Catalog) LoadOverlay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("prompt: open overlay %q: %w", path, err)
	}
	defer f.Close()

	if err := c.LoadOverlayFromReader(f); err != nil {
		return fmt.Errorf("prompt: parse overlay %q: %w", path, err)
	}
	return nil
}

// LoadOverlayFromReader decodes overlay YAML from r and applies it.
// Useful in tests where overlays are built from string literals.
func (c *Catalog) LoadOverlayFromReader(r io.Reader) error {
	var of overlayFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&of); err != nil {
		return fmt.Errorf("prompt: decode overlay yaml: %w", err)
	}

	for i, t := range of.Templates {
		if t.Name == "" {
			return fmt.Errorf("prompt: overlay templates[%d] has no name", i)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range of.Templates {
		c.templates[t.Name] = t
	}
	return nil
}
