package models

import "testing"

func TestNormalizeColor(t *testing.T) {
	cases := []struct {
		raw  string
		want ColorState
	}{
		{"green", ColorGreen},
		{"yellow", ColorYellow},
		{"red", ColorRed},
		{"GREEN", ColorGreen},
		{"  Red  ", ColorRed},
		{"amber", ColorYellow},
		{"Amber", ColorYellow},
		{"g", ColorGreen},
		{"Y", ColorYellow},
		{"r", ColorRed},
		{"", ColorUnknown},
		{"   ", ColorUnknown},
		{"blue", ColorUnknown},
		{"off", ColorUnknown},
		{"greenish", ColorUnknown},
		{"unknown", ColorUnknown},
	}
	for _, tc := range cases {
		if got := NormalizeColor(tc.raw); got != tc.want {
			t.Errorf("NormalizeColor(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
