package domain

// ColumnSchema describes one column of a relational table.
type ColumnSchema struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TableSchema describes one relational table exposed to the generator.
type TableSchema struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []ColumnSchema `json:"columns" yaml:"columns"`
}

// SchemaDescription is the serialized schema handed to the statement
// generator; table order matters (templates use the first table).
type SchemaDescription struct {
	Tables []TableSchema `json:"tables" yaml:"tables"`
}

// HasTable reports whether the schema names the given table.
func (s SchemaDescription) HasTable(name string) bool {
	for _, t := range s.Tables {
		if t.Name == name {
			return true
		}
	}
	return false
}

// HasColumn reports whether the schema names the given table.column pair.
func (s SchemaDescription) HasColumn(table, column string) bool {
	for _, t := range s.Tables {
		if t.Name != table {
			continue
		}
		for _, c := range t.Columns {
			if c.Name == column {
				return true
			}
		}
	}
	return false
}

// QueryCandidate is a generated statement plus its validation verdict.
// A candidate with SecurityValid=false is returned for inspection only and
// must never reach the executor.
type QueryCandidate struct {
	Statement        string   `json:"statement"`
	TablesUsed       []string `json:"tables_used"`
	ColumnsUsed      []string `json:"columns_used"`
	Confidence       float64  `json:"confidence"`
	SecurityValid    bool     `json:"security_valid"`
	SchemaValid      bool     `json:"schema_valid"`
	ValidationErrors []string `json:"validation_errors"`
	Reasoning        string   `json:"reasoning,omitempty"`
}
