package model

import (
	"reflect"
	"testing"
)

func TestNormalizeSkills(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, []string{}},
		{"string", "x", []string{"x"}},
		{"int", 5, []string{}},
		{"float", 5.0, []string{}},
		{"bool", true, []string{}},
		{"mixed list", []any{"a", nil, 2.0}, []string{"a", "2"}},
		{"fractional number", []any{1.5}, []string{"1.5"}},
		{"string slice", []string{"Go", "SQL"}, []string{"Go", "SQL"}},
		{"object", map[string]any{"k": "v"}, []string{}},
		{"empty list", []any{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSkills(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeSkills(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeSkills_Idempotent(t *testing.T) {
	once := NormalizeSkills([]any{"Go", nil, 3.0, "React"})
	twice := NormalizeSkills(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed result: %v -> %v", once, twice)
	}
}

func TestNewPosting_MissingFieldsAreUnknown(t *testing.T) {
	p := NewPosting(map[string]any{"role": "Engineer", "experience": 3.0})

	if p.Role.String() != "Engineer" {
		t.Errorf("Role = %q, want Engineer", p.Role)
	}
	if p.Experience.Present {
		t.Error("Experience should not be present when the model sent a number")
	}
	if p.Description.String() != Unknown {
		t.Errorf("Description = %q, want %q", p.Description, Unknown)
	}
	if len(p.Skills()) != 0 {
		t.Errorf("Skills = %v, want empty", p.Skills())
	}
}

func TestNewPosting_NonObject(t *testing.T) {
	p := NewPosting("just a string")
	if p.Raw != nil {
		t.Error("expected nil Raw for non-object element")
	}
	if p.JSON() != "{}" {
		t.Errorf("JSON() = %q, want {}", p.JSON())
	}
	if got := p.Skills(); len(got) != 0 {
		t.Errorf("Skills = %v, want empty", got)
	}
}

func TestPostingJSON(t *testing.T) {
	p := NewPosting(map[string]any{"role": "SRE", "skills": []any{"Go"}})
	want := `{"role":"SRE","skills":["Go"]}`
	if got := p.JSON(); got != want {
		t.Errorf("JSON() = %s, want %s", got, want)
	}
}
