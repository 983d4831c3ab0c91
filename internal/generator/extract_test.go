package generator_test

import (
	"testing"

	"github.com/lorekeeperhq/lorekeeper/internal/generator"
)

func TestExtractJSONLadder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		wantTier generator.Tier
		wantKey  string
		wantVal  any
	}{
		{
			name:     "raw object",
			raw:      `{"narrative": "text", "mood": "calm"}`,
			wantTier: generator.TierRaw,
			wantKey:  "mood",
			wantVal:  "calm",
		},
		{
			name:     "raw with surrounding whitespace",
			raw:      "\n  {\"mood\": \"tense\"}\n",
			wantTier: generator.TierRaw,
			wantKey:  "mood",
			wantVal:  "tense",
		},
		{
			name:     "fenced block with language tag",
			raw:      "Here is the result:\n```json\n{\"mood\": \"somber\"}\n```\nHope that helps!",
			wantTier: generator.TierFenced,
			wantKey:  "mood",
			wantVal:  "somber",
		},
		{
			name:     "fenced block without language tag",
			raw:      "```\n{\"mood\": \"urgent\"}\n```",
			wantTier: generator.TierFenced,
			wantKey:  "mood",
			wantVal:  "urgent",
		},
		{
			name:     "bare braces in prose",
			raw:      `The model says {"mood": "peaceful", "narrative": "all is well"} and nothing more.`,
			wantTier: generator.TierBraces,
			wantKey:  "mood",
			wantVal:  "peaceful",
		},
		{
			name:     "nested braces",
			raw:      `prefix {"rewards": {"xp": 100}, "mood": "triumphant"} suffix`,
			wantTier: generator.TierBraces,
			wantKey:  "mood",
			wantVal:  "triumphant",
		},
		{
			name:     "braces inside string literals",
			raw:      `note: {"narrative": "the sigil reads {unknown}", "mood": "mysterious"}`,
			wantTier: generator.TierBraces,
			wantKey:  "mood",
			wantVal:  "mysterious",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, tier := generator.ExtractJSON(tc.raw)
			if tier != tc.wantTier {
				t.Fatalf("tier = %q, want %q", tier, tc.wantTier)
			}
			if got := m[tc.wantKey]; got != tc.wantVal {
				t.Errorf("m[%q] = %v, want %v", tc.wantKey, got, tc.wantVal)
			}
			if _, ok := m[generator.KeyParseError]; ok {
				t.Error("successful extraction must not set the parse-error key")
			}
		})
	}
}

func TestExtractJSONSentinel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{"plain prose", "The dragon descends upon the village."},
		{"unbalanced braces", `{"narrative": "cut off mid`},
		{"json array not object", `[1, 2, 3]`},
		{"empty", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, tier := generator.ExtractJSON(tc.raw)
			if tier != generator.TierSentinel {
				t.Fatalf("tier = %q, want sentinel", tier)
			}
			if m["narrative"] != tc.raw {
				t.Errorf("narrative = %v, want the raw text", m["narrative"])
			}
			if m["mood"] != "neutral" {
				t.Errorf("mood = %v, want neutral", m["mood"])
			}
			if m[generator.KeyParseError] != true {
				t.Error("sentinel must set the parse-error key")
			}
		})
	}
}
