package gtfs

// KnownTables lists the GTFS files extracted from a static archive, by
// table name (file name minus the .txt suffix).
var KnownTables = []string{
	"agency",
	"stops",
	"routes",
	"trips",
	"stop_times",
	"calendar",
	"calendar_dates",
}

// Table is one parsed GTFS file: rows keyed by the header row's column
// names, in file order.
type Table struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// TableSet holds the tables found in one static archive. A key exists only
// when the archive contained the matching file. FeedURL and FeedName are
// filled in by the ingestor before the set reaches storage.
type TableSet struct {
	Tables   map[string]*Table `json:"tables"`
	FeedURL  string            `json:"feed_url,omitempty"`
	FeedName string            `json:"feed_name,omitempty"`
}

// Lookup returns the named table and whether the archive contained it.
func (ts *TableSet) Lookup(name string) (*Table, bool) {
	t, ok := ts.Tables[name]
	return t, ok
}

// TableCount returns the number of tables present.
func (ts *TableSet) TableCount() int {
	return len(ts.Tables)
}

// RowCount returns the total number of data rows across all tables.
func (ts *TableSet) RowCount() int {
	n := 0
	for _, t := range ts.Tables {
		n += len(t.Rows)
	}
	return n
}
