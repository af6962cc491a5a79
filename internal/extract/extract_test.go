package extract

import (
	"testing"

	"github.com/Antoine93/anki-doc-master/internal/core"
)

func TestCards_PermissiveFence(t *testing.T) {
	raw := "Here you go:\n```json\n{\"cards\":[{\"front\":\"a\",\"back\":\"b\"},{\"bogus\":1}]}\n```\nThanks!"

	cards, err := Cards(raw, core.CardTypeBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected exactly one valid card, got %d", len(cards))
	}
	if cards[0]["front"] != "a" || cards[0]["back"] != "b" {
		t.Fatalf("unexpected card: %v", cards[0])
	}
}

func TestCards_BareBraceSpan(t *testing.T) {
	raw := "Sure! {\"cards\": [{\"text\": \"the {{c1::answer}}\"}]} hope that helps"

	cards, err := Cards(raw, core.CardTypeCloze)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected one cloze card, got %d", len(cards))
	}
}

func TestCards_UntaggedFence(t *testing.T) {
	raw := "```\n{\"cards\":[{\"front\":\"q\",\"back\":\"a\"}]}\n```"

	cards, err := Cards(raw, core.CardTypeBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected one card, got %d", len(cards))
	}
}

func TestCards_MissingFieldYieldsEmpty(t *testing.T) {
	cards, err := Cards(`{"note": "nothing here"}`, core.CardTypeBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("missing cards field must yield empty list, got %v", cards)
	}
}

func TestPayload_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t "},
		{"no brace span", "I could not process the document, sorry."},
		{"broken json", "{\"cards\": [oops]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Cards(tt.raw, core.CardTypeBasic)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !core.IsGatewayError(err) {
				t.Fatalf("parse failures must surface as gateway errors, got %v", err)
			}
		})
	}
}

func TestModules(t *testing.T) {
	raw := "```json\n{\"detected_modules\": [\"themes\", \"vocabulary\", 42]}\n```"

	modules, err := Modules(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(modules) != 2 || modules[0] != "themes" || modules[1] != "vocabulary" {
		t.Fatalf("unexpected modules: %v", modules)
	}
}

func TestModules_MissingField(t *testing.T) {
	modules, err := Modules(`{"summary": "a PDF about cells"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(modules) != 0 {
		t.Fatalf("expected empty module list, got %v", modules)
	}
}

func TestItems(t *testing.T) {
	raw := `{"items": [{"title": "Mitosis", "content": "..."}, "not an object"]}`

	items, err := Items(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0]["title"] != "Mitosis" {
		t.Fatalf("unexpected items: %v", items)
	}
}

func TestDeck(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"txt fence", "Here is the deck:\n```txt\n#separator:;\nfront;back\n```", "#separator:;\nfront;back"},
		{"anki fence", "```anki\n#separator:;\nq;a\n```", "#separator:;\nq;a"},
		{"no fence", "#separator:;\nq;a", "#separator:;\nq;a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deck(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Deck() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeck_Empty(t *testing.T) {
	if _, err := Deck("  "); err == nil {
		t.Fatalf("expected error for empty response")
	}
}
