package prompt_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/lorekeeperhq/lorekeeper/internal/prompt"
)

func TestCatalogBuiltinsComplete(t *testing.T) {
	t.Parallel()
	c := prompt.NewCatalog()

	want := []string{
		prompt.TplNarrative,
		prompt.TplOpening,
		prompt.TplNPCGeneration,
		prompt.TplNPCDialogue,
		prompt.TplCombatEncounter,
		prompt.TplSocialEncounter,
		prompt.TplPuzzleEncounter,
		prompt.TplCombatAction,
		prompt.TplLocation,
		prompt.TplSceneDescription,
		prompt.TplRecap,
		prompt.TplLoot,
		prompt.TplContextSummary,
	}
	for _, name := range want {
		if _, err := c.Get(name); err != nil {
			t.Errorf("Get(%q) returned error: %v", name, err)
		}
	}
	if got := len(c.Names()); got != len(want) {
		t.Errorf("Names() has %d entries, want %d", got, len(want))
	}
}

func TestCatalogDeclaredSlotsAppearInText(t *testing.T) {
	t.Parallel()
	c := prompt.NewCatalog()

	for _, name := range c.Names() {
		tpl, err := c.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		body := tpl.System + tpl.User
		for _, slot := range tpl.Slots {
			if !strings.Contains(body, "{"+slot+"}") {
				t.Errorf("template %q declares slot %q but never uses it", name, slot)
			}
		}
	}
}

func TestCatalogRender(t *testing.T) {
	t.Parallel()
	c := prompt.NewCatalog()

	slots := map[string]string{
		"genre":              "dark fantasy",
		"difficulty":         "hard",
		"encounter_type":     "combat",
		"party_level":        "5",
		"ignored_extra_slot": "unused",
	}
	got, err := c.Render(prompt.TplLoot, slots)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(got.System, "dark fantasy") {
		t.Errorf("system prompt missing genre substitution: %q", got.System)
	}
	if !strings.Contains(got.User, "hard encounter") {
		t.Errorf("user prompt missing difficulty substitution: %q", got.User)
	}
	if strings.Contains(got.System+got.User, "{genre}") {
		t.Error("rendered output still contains a placeholder")
	}
}

func TestCatalogRenderMissingSlot(t *testing.T) {
	t.Parallel()
	c := prompt.NewCatalog()

	_, err := c.Render(prompt.TplLoot, map[string]string{"genre": "fantasy"})
	if !errors.Is(err, prompt.ErrSlotMissing) {
		t.Fatalf("Render error = %v, want ErrSlotMissing", err)
	}
}

func TestCatalogGetUnknown(t *testing.T) {
	t.Parallel()
	c := prompt.NewCatalog()

	_, err := c.Get("no_such_template")
	if !errors.Is(err, prompt.ErrUnknownTemplate) {
		t.Fatalf("Get error = %v, want ErrUnknownTemplate", err)
	}
}

func TestCatalogOverlayReplacesAndAdds(t *testing.T) {
	t.Parallel()
	c := prompt.NewCatalog()

	overlay := `
templates:
  - name: ` + prompt.TplLoot + `
    system: "Custom loot system for {genre}."
    user: "Roll loot."
    slots: [genre]
  - name: custom_extra
    system: "Brand new template."
    user: "Hello {who}."
    slots: [who]
`
	if err := c.LoadOverlayFromReader(strings.NewReader(overlay)); err != nil {
		t.Fatalf("LoadOverlayFromReader: %v", err)
	}

	got, err := c.Render(prompt.TplLoot, map[string]string{"genre": "sci-fi"})
	if err != nil {
		t.Fatalf("Render overridden template: %v", err)
	}
	if got.System != "Custom loot system for sci-fi." {
		t.Errorf("overridden system = %q", got.System)
	}

	got, err = c.Render("custom_extra", map[string]string{"who": "traveler"})
	if err != nil {
		t.Fatalf("Render added template: %v", err)
	}
	if got.User != "Hello traveler." {
		t.Errorf("added template user = %q", got.User)
	}
}

func TestCatalogOverlayRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	c := prompt.NewCatalog()

	overlay := `
templates:
  - name: x
    system: s
    user: u
    bogus: true
`
	if err := c.LoadOverlayFromReader(strings.NewReader(overlay)); err == nil {
		t.Fatal("expected error for unknown overlay field, got nil")
	}
}

func TestCatalogOverlayRequiresName(t *testing.T) {
	t.Parallel()
	c := prompt.NewCatalog()

	overlay := `
templates:
  - system: s
    user: u
`
	if err := c.LoadOverlayFromReader(strings.NewReader(overlay)); err == nil {
		t.Fatal("expected error for unnamed overlay template, got nil")
	}
}
