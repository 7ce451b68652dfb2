package persona

import (
	"strings"
	"testing"

	"github.com/gigabhai/gigabhai/internal/provider"
)

func TestResolveFallsBackToDefault(t *testing.T) {
	if got := Resolve("no_such_bhai"); got.ID != DefaultID {
		t.Fatalf("Resolve(unknown) = %q, want %q", got.ID, DefaultID)
	}
	if got := Resolve(""); got.ID != DefaultID {
		t.Fatalf("Resolve(empty) = %q, want %q", got.ID, DefaultID)
	}
	if got := Resolve("ceo_bhai"); got.ID != "ceo_bhai" {
		t.Fatalf("Resolve(ceo_bhai) = %q", got.ID)
	}
}

func TestListIsStableAndComplete(t *testing.T) {
	personas := List()
	if len(personas) != 5 {
		t.Fatalf("len(List()) = %d, want 5", len(personas))
	}
	for i := 1; i < len(personas); i++ {
		if personas[i-1].ID >= personas[i].ID {
			t.Fatalf("List() not sorted: %q before %q", personas[i-1].ID, personas[i].ID)
		}
	}
	if !Known("roast_bhai") || Known("boss_bhai") {
		t.Fatalf("Known() misclassified ids")
	}
}

func TestContextShape(t *testing.T) {
	msgs := Context("vidhyarthi_bhai")
	if len(msgs) != 2 {
		t.Fatalf("len(Context()) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != provider.RoleSystem {
		t.Fatalf("first message role = %q, want system", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "Vidhyarthi Bhai") {
		t.Fatalf("system prompt missing persona name: %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "stay in character") {
		t.Fatalf("system prompt missing base instructions")
	}
	if msgs[1].Role != provider.RoleAssistant || msgs[1].Content == "" {
		t.Fatalf("second message should be the persona intro, got %+v", msgs[1])
	}
}
