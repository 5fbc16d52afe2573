package models

// Column describes one column of a materialized table.
type Column struct {
	Name string
	Type string // Snowflake type, e.g. "INT", "VARCHAR(50)", "DECIMAL(10,2)"
}

// Table is a fully materialized model output, ready for a target writer.
// Nullable values are represented as nil cells.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
	Rows    [][]interface{}
}

// FullName returns the schema-qualified table name.
func (t *Table) FullName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}
