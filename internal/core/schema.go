// Package core defines the shared value types exchanged between the
// backends, the connection registry, and the tool surface. Keeping them
// here avoids import cycles between the engine-specific packages.
package core

// ColumnDescription describes one column of a table.
type ColumnDescription struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	FullType     string  `json:"full_type,omitempty"` // e.g. varchar(255), where the engine exposes it
	Nullable     bool    `json:"nullable"`
	Default      *string `json:"default,omitempty"` // nil when the column has no default
	IsPrimaryKey bool    `json:"is_primary_key"`
	Extra        string  `json:"extra,omitempty"` // e.g. auto_increment
	Position     int     `json:"-"`               // ordinal position, used for stable ordering
}

// ForeignKeyDescription describes a single-column foreign key reference.
type ForeignKeyDescription struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// IndexDescription describes a non-primary index.
type IndexDescription struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TableDescription holds the normalized metadata for one table.
type TableDescription struct {
	Name            string                  `json:"name"`
	Columns         []ColumnDescription     `json:"columns"`
	PrimaryKeys     []string                `json:"primary_keys"`
	ForeignKeys     []ForeignKeyDescription `json:"foreign_keys"`
	Indexes         []IndexDescription      `json:"indexes"`
	RowCount        int64                   `json:"row_count"`
	CreateStatement string                  `json:"create_statement,omitempty"`
}

// SchemaDescription is an ordered sequence of table descriptions for one
// database. Ordering is normalized by the introspector so repeated calls
// against an unchanged schema produce identical values.
type SchemaDescription struct {
	Database string             `json:"database"`
	Engine   string             `json:"engine"`
	Tables   []TableDescription `json:"tables"`
}

// TableNames returns the table names in schema order.
func (s *SchemaDescription) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Table returns the description of the named table, or nil.
func (s *SchemaDescription) Table(name string) *TableDescription {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}
