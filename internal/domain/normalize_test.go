package domain

import "testing"

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trim spaces", input: "  Acme Finance Co.  ", want: "acme finance co."},
		{name: "lowercase", input: "ACME FINANCE CO.", want: "acme finance co."},
		{name: "compress multiple spaces", input: "Acme   Finance  Co.", want: "acme finance co."},
		{name: "tabs inside name", input: "Acme\tFinance\nCo.", want: "acme finance co."},
		{name: "diacritics preserved", input: "Société Générale", want: "société générale"},
		{name: "hyphens preserved", input: "Smith-Jones LLP", want: "smith-jones llp"},
		{name: "apostrophes preserved", input: "O'Brien", want: "o'brien"},
		{name: "punctuation preserved", input: "Acme Finance Co", want: "acme finance co"},
		{name: "empty string", input: "", want: ""},
		{name: "only spaces", input: "   ", want: ""},
		{name: "tabs and spaces", input: "\t Jane Doe \t", want: "jane doe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeText(tt.input); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
