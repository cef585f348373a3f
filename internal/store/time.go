package store

import (
	"database/sql"
	"time"
)

func dbFormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func dbParseTime(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func dbFormatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbFormatTime(*t)
}

func dbParseNullTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	parsed, err := dbParseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
