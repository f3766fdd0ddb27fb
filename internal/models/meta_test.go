package models

import "testing"

func TestAnnonceDescriptor(t *testing.T) {
	tests := []struct {
		field                            string
		filterable, sortable, searchable bool
	}{
		{"id", false, true, false},
		{"title", true, true, true},
		{"description", true, false, true},
		{"address", true, false, true},
		{"mail", false, false, false},
		{"createdAt", true, true, false},
		{"status", true, true, false},
		{"author", true, false, false},
		{"category", true, false, false},
		{"version", false, false, false},
	}

	if len(AnnonceDescriptor.Fields) != len(tests) {
		t.Fatalf("descriptor has %d fields, want %d", len(AnnonceDescriptor.Fields), len(tests))
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, ok := AnnonceDescriptor.Field(tt.field)
			if !ok {
				t.Fatalf("field %q missing", tt.field)
			}
			if f.Filterable != tt.filterable || f.Sortable != tt.sortable || f.Searchable != tt.searchable {
				t.Errorf("got filterable=%v sortable=%v searchable=%v", f.Filterable, f.Sortable, f.Searchable)
			}
			if AnnonceDescriptor.IsSortable(tt.field) != tt.sortable {
				t.Errorf("IsSortable mismatch")
			}
		})
	}

	if AnnonceDescriptor.IsSortable("nope") {
		t.Error("unknown field reported sortable")
	}
}
