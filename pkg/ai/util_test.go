package ai

import (
	"reflect"
	"testing"
)

type labelPayload struct {
	Label    string   `json:"label"`
	Keywords []string `json:"keywords"`
}

func TestUnmarshalFlexible(t *testing.T) {
	want := labelPayload{Label: "Energy Storage", Keywords: []string{"battery", "grid"}}

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "standard json",
			input: `{"label": "Energy Storage", "keywords": ["battery", "grid"]}`,
		},
		{
			name:  "double encoded",
			input: `"{\"label\": \"Energy Storage\", \"keywords\": [\"battery\", \"grid\"]}"`,
		},
		{
			name:  "unquoted keys repaired",
			input: `{label: "Energy Storage", keywords: ["battery", "grid"]}`,
		},
		{
			name:  "trailing comma repaired",
			input: `{"label": "Energy Storage", "keywords": ["battery", "grid"],}`,
		},
		{
			name:  "duplicate leading brace",
			input: `{{"label": "Energy Storage", "keywords": ["battery", "grid"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got labelPayload
			if err := UnmarshalFlexible(tt.input, &got); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestUnmarshalFlexibleRejectsGarbage(t *testing.T) {
	var got labelPayload
	if err := UnmarshalFlexible("not json at all ][", &got); err == nil {
		t.Fatal("expected an error for unrepairable input")
	}
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(&labelPayload{})
	if schema == nil {
		t.Fatal("expected a schema, got nil")
	}
}
