package models

// FieldDescriptor describes how one field of an entity may be queried.
type FieldDescriptor struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Filterable bool   `json:"filterable"`
	Sortable   bool   `json:"sortable"`
	Searchable bool   `json:"searchable"`
}

// EntityDescriptor is the static query metadata of an entity.
type EntityDescriptor struct {
	Entity string            `json:"entity"`
	Fields []FieldDescriptor `json:"fields"`
}

// AnnonceDescriptor lists the query capabilities of Annonce fields.
// version and mail are never filterable.
var AnnonceDescriptor = EntityDescriptor{
	Entity: "Annonce",
	Fields: []FieldDescriptor{
		{Name: "id", Type: "uuid", Sortable: true},
		{Name: "title", Type: "string", Filterable: true, Sortable: true, Searchable: true},
		{Name: "description", Type: "string", Filterable: true, Searchable: true},
		{Name: "address", Type: "string", Filterable: true, Searchable: true},
		{Name: "mail", Type: "string"},
		{Name: "createdAt", Type: "datetime", Filterable: true, Sortable: true},
		{Name: "status", Type: "enum", Filterable: true, Sortable: true},
		{Name: "author", Type: "reference", Filterable: true},
		{Name: "category", Type: "reference", Filterable: true},
		{Name: "version", Type: "integer"},
	},
}

// Field returns the descriptor of the named field.
func (d EntityDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// IsSortable reports whether results may be ordered by the named field.
func (d EntityDescriptor) IsSortable(name string) bool {
	f, ok := d.Field(name)
	return ok && f.Sortable
}
