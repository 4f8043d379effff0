package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "1987-10-19T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	want := time.Date(2000, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2000-03-10", "03/10/2000"} {
		got, ok := ParseTime(s)
		if !ok || !got.Equal(want) {
			t.Fatalf("%s: got %v ok=%v", s, got, ok)
		}
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got, err := ParseTimeDefault("", def)
	if err != nil || !got.Equal(def) {
		t.Fatalf("expected default")
	}
	if _, err := ParseTimeDefault("yesterday", def); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}
