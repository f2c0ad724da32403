/*
Package gtfs parses GTFS static archives into tabular record sets.

The package is data-source agnostic: it accepts raw zip bytes and never
touches HTTP or the filesystem. The archive is opened in memory and each of
the seven known table files is extracted into rows keyed by the header row:

	tables, err := gtfs.Parse(zipBytes)
	if err != nil {
	    return err
	}
	if stops, ok := tables.Lookup("stops"); ok {
	    for _, row := range stops.Rows {
	        fmt.Println(row["stop_id"], row["stop_name"])
	    }
	}

Presence is meaningful: a file missing from the archive yields no table key
at all, while a present-but-empty file yields an empty table. Callers can
tell "no calendar_dates.txt" apart from "calendar_dates with no rows".
Archive members outside the known set are ignored.
*/
package gtfs
