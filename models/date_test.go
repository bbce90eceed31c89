package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	for _, bad := range []string{"", "2024-2-1", "2024-02-30", "yesterday", "2024-02-01T10:00:00Z"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2023, time.December, 31)

	next := d.AddDays(1)
	assert.Equal(t, "2024-01-01", next.String())
	assert.True(t, next.After(d))
	assert.True(t, d.Before(next))
	assert.True(t, d.AddDays(1).AddDays(-1).Equal(d))
	assert.False(t, d.After(d))
}

func TestDateOfUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	ts := time.Date(2024, time.March, 2, 1, 30, 0, 0, loc) // still March 1st in UTC

	assert.Equal(t, "2024-03-02", DateOf(ts).String())
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"time", time.Date(2024, time.May, 5, 0, 0, 0, 0, time.Local), "2024-05-05"},
		{"text", "2024-05-05", "2024-05-05"},
		{"datetime text", "2024-05-05 00:00:00+00:00", "2024-05-05"},
		{"bytes", []byte("2024-05-05"), "2024-05-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.value))
			assert.Equal(t, tt.want, d.String())
		})
	}

	var d Date
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("05/05"))
}

func TestDateValue(t *testing.T) {
	v, err := NewDate(2024, time.January, 9).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-09", v)
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		Day  Date  `json:"day"`
		Last *Date `json:"last"`
	}

	b, err := json.Marshal(payload{Day: NewDate(2024, time.June, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-06-01","last":null}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2024-06-02","last":"2024-06-01"}`), &p))
	assert.Equal(t, "2024-06-02", p.Day.String())
	require.NotNil(t, p.Last)
	assert.Equal(t, "2024-06-01", p.Last.String())

	assert.Error(t, json.Unmarshal([]byte(`{"day":"June 2"}`), &p))
}
