package contentservice

type FieldKind int

const (
	KindText FieldKind = iota
	KindDecimal
)

type Field struct {
	Name     string
	Required bool
	Kind     FieldKind
	MaxLen   int
}

// Resource describes one content type: its table, upload directory, scalar fields and attachment slots.
// Table and column names are only ever taken from these definitions when building SQL.
type Resource struct {
	Name   string
	Table  string
	Dir    string
	Fields []Field
	Slots  []string
}

var (
	Blog = Resource{
		Name:  "blog",
		Table: "blog",
		Dir:   "blogs",
		Fields: []Field{
			{Name: "name", Required: true, MaxLen: 255},
			{Name: "title_1", MaxLen: 2000},
			{Name: "title_2", MaxLen: 2000},
			{Name: "title_3", MaxLen: 2000},
		},
		Slots: []string{"images_1", "images_2"},
	}

	Visit = Resource{
		Name:  "visit",
		Table: "visit",
		Dir:   "visit",
		Fields: []Field{
			{Name: "name", Required: true, MaxLen: 255},
			{Name: "title_1", MaxLen: 2000},
			{Name: "title_2", MaxLen: 2000},
			{Name: "title_3", MaxLen: 2000},
			{Name: "title_4", MaxLen: 2000},
			{Name: "title_5", MaxLen: 2000},
		},
		Slots: []string{"images_1", "images_2", "image_3", "images_4", "images_5"},
	}

	Promotion = Resource{
		Name:  "promotion",
		Table: "promotion",
		Dir:   "promotions",
		Fields: []Field{
			{Name: "name", Required: true, MaxLen: 255},
			{Name: "description", MaxLen: 5000},
			{Name: "unit", MaxLen: 50},
			{Name: "price_1", Kind: KindDecimal, MaxLen: 13},
			{Name: "price_2", Kind: KindDecimal, MaxLen: 13},
			{Name: "title", MaxLen: 255},
		},
		Slots: []string{"image"},
	}
)

// Resources lists every content type served by the API.
func Resources() []Resource {
	return []Resource{Blog, Visit, Promotion}
}

func (r Resource) HasSlot(name string) bool {
	for _, s := range r.Slots {
		if s == name {
			return true
		}
	}
	return false
}

// columns returns field columns followed by slot columns, the order used by every query.
func (r Resource) columns() []string {
	cols := make([]string, 0, len(r.Fields)+len(r.Slots))
	for _, f := range r.Fields {
		cols = append(cols, f.Name)
	}
	return append(cols, r.Slots...)
}
