package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"path"
	"strings"

	"github.com/RailOpsData/adaptive-signal-open-data/feed"
)

// Parse opens zipBytes as a GTFS static archive in memory and extracts the
// known table files. An archive that cannot be opened as a zip, or a known
// file with malformed CSV, is a hard Decode failure; a missing file simply
// yields no table.
func Parse(zipBytes []byte) (*TableSet, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, feed.Errf(feed.ErrDecode, "opening static archive: %w", err)
	}

	ts := &TableSet{Tables: make(map[string]*Table)}
	for _, zf := range zr.File {
		name := tableName(zf.Name)
		if name == "" {
			continue
		}
		table, err := consumeCSV(zf)
		if err != nil {
			return nil, feed.Errf(feed.ErrDecode, "parsing %s: %w", zf.Name, err)
		}
		ts.Tables[name] = table
	}
	return ts, nil
}

// tableName maps an archive member to a known table name, or "" to skip
// it. Some agencies nest the files one directory deep, so only the base
// name counts.
func tableName(member string) string {
	base := strings.ToLower(path.Base(member))
	for _, known := range KnownTables {
		if base == known+".txt" {
			return known
		}
	}
	return ""
}

func consumeCSV(zf *zip.File) (*Table, error) {
	r, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	rec, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		return &Table{}, nil
	}

	header := rec[0]
	header[0] = strings.TrimPrefix(header[0], "﻿")

	table := &Table{Columns: header}
	for _, row := range rec[1:] {
		m := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		table.Rows = append(table.Rows, m)
	}
	return table, nil
}
