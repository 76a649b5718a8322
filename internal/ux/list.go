package ux

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// List modes.
const (
	ModeCompact       = "compact"
	ModeDetailed      = "detailed"
	ModeDetailedUltra = "detailed-ultra"
)

// Row is one directive in a listing: ordered column names and their values.
type Row struct {
	Columns []string
	Values  map[string]string
}

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Values[c])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RenderList prints rows as an aligned table with a mode header.
func RenderList(w io.Writer, mode string, rows []Row) {
	fmt.Fprintf(w, "%s\n", Dim("mode="+mode))
	if len(rows) == 0 {
		fmt.Fprintf(w, "  %s\n", Dim("(no directives)"))
		return
	}
	cols := rows[0].Columns
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			v := r.Values[c]
			if c == "status" {
				v = Status(v)
			}
			vals[i] = v
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	tw.Flush()
}
