package openai

import "testing"

func TestModelDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
	}
	for _, tt := range tests {
		if got := modelDimensions(tt.model); got != tt.want {
			t.Errorf("modelDimensions(%q) = %d, want %d", tt.model, got, tt.want)
		}
	}

	if d := modelDimensions("some-future-model"); d <= 0 {
		t.Errorf("unknown model dimensions = %d, want a positive default", d)
	}
}

func TestDimensionsMatchesModelTable(t *testing.T) {
	t.Parallel()

	for _, model := range []string{
		"text-embedding-3-small",
		"text-embedding-3-large",
		"text-embedding-ada-002",
	} {
		p := &Provider{model: model}
		if got := p.Dimensions(); got != modelDimensions(model) {
			t.Errorf("model %s: Dimensions() = %d, want %d", model, got, modelDimensions(model))
		}
	}
}

func TestModelIDPassesThrough(t *testing.T) {
	t.Parallel()

	p := &Provider{model: "my-custom-embeddings-model"}
	if got := p.ModelID(); got != "my-custom-embeddings-model" {
		t.Errorf("ModelID() = %q", got)
	}
}

func TestNewDefaultsAndValidation(t *testing.T) {
	t.Parallel()

	p, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New with empty model: %v", err)
	}
	if p.ModelID() != DefaultModel {
		t.Errorf("default model = %s, want %s", p.ModelID(), DefaultModel)
	}

	if _, err := New("", "text-embedding-3-small"); err == nil {
		t.Fatal("New with empty API key should fail")
	}

	if _, err := New("sk-test", "text-embedding-3-small",
		WithBaseURL("https://custom.example.com"),
		WithOrganization("org-123"),
	); err != nil {
		t.Fatalf("New with options: %v", err)
	}
}

func TestFloat64ToFloat32(t *testing.T) {
	t.Parallel()

	in := []float64{1.0, 2.5, -0.5}
	out := float64ToFloat32(in)
	if len(out) != len(in) {
		t.Fatalf("length = %d, want %d", len(out), len(in))
	}
	for i, v := range out {
		if v != float32(in[i]) {
			t.Errorf("index %d: got %v, want %v", i, v, float32(in[i]))
		}
	}
}
