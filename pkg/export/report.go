package export

// Table is one titled block of tabular content.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Report is a document made of tables followed by free text notes.
type Report struct {
	Title  string
	Tables []Table
	Notes  []string
}

func (r Report) validate() error {
	if len(r.Tables) == 0 {
		return errEmptyReport
	}
	for _, table := range r.Tables {
		if len(table.Headers) == 0 {
			return errNoHeaders
		}
	}
	return nil
}
