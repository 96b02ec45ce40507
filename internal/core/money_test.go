package core

import "testing"

func TestParsePriceToCents(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"$42.50", 4250, true},
		{"$10.00", 1000, true},
		{"5.00", 500, true},
		{"0", 0, true},
		{"$0.00", 0, true},
		{"0.5", 50, true},
		{".75", 75, true},
		{"$12.344", 1234, true}, // rounds down
		{"$12.345", 1235, true}, // half-up
		{"-$3.25", -325, true},
		{"$-3.25", -325, true},
		{"+$1.00", 100, true},
		{" $2.00 ", 200, true},
		{"bad", 0, false},
		{"", 0, false},
		{"$", 0, false},
		{"--1", 0, false},
		{"1,000.00", 0, false},
		{"10.0.0", 0, false},
		{"$10.00 USD", 0, false},
	}
	for _, tc := range cases {
		got, err := ParsePriceToCents(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParsePriceToCents(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParsePriceToCents(%q) expected error, got %d", tc.in, got)
		}
		if tc.ok && got != tc.cents {
			t.Fatalf("ParsePriceToCents(%q) = %d, want %d", tc.in, got, tc.cents)
		}
	}
}

func TestMoneyDollars(t *testing.T) {
	if d := (Money{Cents: 3550}).Dollars(); d != 35.5 {
		t.Fatalf("Dollars() = %v, want 35.5", d)
	}
	if s := (Money{Cents: 4250}).FormatDollars(); s != "$42.50" {
		t.Fatalf("FormatDollars() = %q", s)
	}
	if s := (Money{Cents: -325}).FormatDollars(); s != "-$3.25" {
		t.Fatalf("FormatDollars() = %q", s)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := (Money{Cents: 4250}).MarshalJSON()
	if err != nil || string(b) != "42.50" {
		t.Fatalf("MarshalJSON() = %q, %v", b, err)
	}

	var m Money
	if err := m.UnmarshalJSON([]byte("42.5")); err != nil || m.Cents != 4250 {
		t.Fatalf("UnmarshalJSON(42.5) = %d, %v", m.Cents, err)
	}
	if err := m.UnmarshalJSON([]byte(`"$7.25"`)); err != nil || m.Cents != 725 {
		t.Fatalf("UnmarshalJSON($7.25) = %d, %v", m.Cents, err)
	}
	if err := m.UnmarshalJSON([]byte(`"nope"`)); err == nil {
		t.Fatalf("UnmarshalJSON expected error for malformed amount")
	}
}
