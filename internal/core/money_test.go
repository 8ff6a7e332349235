package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 7 ", "7", true},
		{"0.005", "0.005", true},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "1000", true},
		{"0.00000001", "0.00000001", true},
		{"999999999999999.99", "999999999999999.99", true},
		{"0.000000001", "", false},
		{"1000000000000000", "", false},
		{"1e16", "", false},
		{"1e5000000", "", false},
		{"1e-5000000", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if got.String() != tc.want {
			t.Fatalf("%q: got %s want %s", tc.in, got, tc.want)
		}
	}
}

func TestMoneyJSON_RejectsHugeExponent(t *testing.T) {
	for _, raw := range []string{`1e5000000`, `"1e5000000"`, `-1E400`} {
		var m Money
		if err := m.UnmarshalJSON([]byte(raw)); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("%s: err = %v, want ErrInvalidAmount", raw, err)
		}
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	a := MustMoney("0.1")
	b := MustMoney("0.2")
	if !a.Add(b).Equal(MustMoney("0.3")) {
		t.Fatalf("0.1 + 0.2 = %s", a.Add(b))
	}
	if got := MustMoney("1000").Sub(MustMoney("1200.50")); got.String() != "-200.5" {
		t.Fatalf("sub: got %s", got)
	}
}

func TestMoneyDivDays(t *testing.T) {
	cases := []struct {
		amount string
		days   int
		want   string
	}{
		{"100", 3, "33.33"},
		{"200", 3, "66.67"},
		{"-100", 3, "-33.33"},
		{"0.05", 2, "0.03"}, // half away from zero
		{"300", 0, "300"},
		{"300", 1, "300"},
	}
	for _, tc := range cases {
		got := MustMoney(tc.amount).DivDays(tc.days)
		if !got.Equal(MustMoney(tc.want)) {
			t.Fatalf("%s/%d: got %s want %s", tc.amount, tc.days, got, tc.want)
		}
	}
}

func TestMoneyPercentOf(t *testing.T) {
	if got := MustMoney("250").PercentOf(MustMoney("1000")); got != 25 {
		t.Fatalf("got %v", got)
	}
	if got := MustMoney("1").PercentOf(MustMoney("3")); got != 33.33 {
		t.Fatalf("got %v", got)
	}
	if got := MustMoney("1500").PercentOf(MustMoney("1000")); got != 150 {
		t.Fatalf("unclamped: got %v", got)
	}
	if got := MustMoney("5").PercentOf(Money{}); got != 0 {
		t.Fatalf("zero total: got %v", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.5, "b": "3.25"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A.String() != "12.5" || v.B.String() != "3.25" {
		t.Fatalf("got %s %s", v.A, v.B)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"a":12.5,"b":3.25}` {
		t.Fatalf("got %s", out)
	}
}

func TestMoney_Scan(t *testing.T) {
	for _, src := range []any{"12.30", []byte("12.3"), int64(12)} {
		var m Money
		if err := m.Scan(src); err != nil {
			t.Fatalf("scan %v: %v", src, err)
		}
		if src != int64(12) && !m.Equal(MustMoney("12.3")) {
			t.Errorf("scan %v = %s", src, m)
		}
	}
	var m Money
	if err := m.Scan("abc"); err == nil {
		t.Error("expected error for non-numeric text")
	}
	v, _ := MustMoney("0.10").Value()
	if v != "0.1" {
		t.Errorf("Value() = %v", v)
	}
}

func TestDate_Scan(t *testing.T) {
	want := NewDate(2024, 3, 5)
	for _, src := range []any{"2024-03-05", []byte("2024-03-05"), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "2024-03-05T00:00:00Z"} {
		var d Date
		if err := d.Scan(src); err != nil {
			t.Fatalf("scan %v: %v", src, err)
		}
		if !d.Same(want) {
			t.Errorf("scan %v = %s", src, d)
		}
	}
	var d Date
	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Errorf("nil should scan to zero date, got %s %v", d, err)
	}
	if v, _ := (Date{}).Value(); v != nil {
		t.Errorf("zero date Value() = %v, want nil", v)
	}
}
