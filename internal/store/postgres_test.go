package store

import (
	"database/sql"
	"testing"
)

func TestPQStringArray(t *testing.T) {
	if v := pqStringArray(nil); v != nil {
		t.Fatalf("nil slice -> nil expected")
	}
	if v := pqStringArray([]string{}); v != nil {
		t.Fatalf("empty slice -> nil expected")
	}
	if v := pqStringArray([]string{"a", "b"}); v == nil {
		t.Fatalf("non-empty -> non-nil expected")
	}
}

func TestNullIfEmpty(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty string -> nil expected")
	}
	if v := nullIfEmpty("x"); v != "x" {
		t.Fatalf("want x, got %v", v)
	}
}

func TestSplitCSV(t *testing.T) {
	if got := splitCSV(sql.NullString{}); got != nil {
		t.Fatalf("invalid -> nil expected, got %v", got)
	}
	if got := splitCSV(sql.NullString{String: "", Valid: true}); got != nil {
		t.Fatalf("empty -> nil expected, got %v", got)
	}
	got := splitCSV(sql.NullString{String: "a,b,c", Valid: true})
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("want [a b c], got %v", got)
	}
}

func TestDecodePtrNullAndEmpty(t *testing.T) {
	type payload struct {
		N int `json:"n"`
	}
	if p := decodePtr[payload](nil); p != nil {
		t.Fatalf("nil bytes -> nil expected")
	}
	if p := decodePtr[payload]([]byte("null")); p != nil {
		t.Fatalf("json null -> nil expected")
	}
	p := decodePtr[payload]([]byte(`{"n":7}`))
	if p == nil || p.N != 7 {
		t.Fatalf("want &{7}, got %v", p)
	}
}

func TestDecodeSlice(t *testing.T) {
	got := decodeSlice[int]([]byte("[1,2,3]"))
	if len(got) != 3 || got[1] != 2 {
		t.Fatalf("want [1 2 3], got %v", got)
	}
	if got := decodeSlice[int](nil); got != nil {
		t.Fatalf("nil bytes -> nil expected")
	}
}
