package responsive

import (
	"errors"
	"testing"
)

func TestParseBreakpoints(t *testing.T) {
	body := `
480=s|Small
960=m|Medium
1200=+l|Large
1600=xl
`
	table, err := ParseBreakpoints(body)
	if err != nil {
		t.Fatalf("ParseBreakpoints: %v", err)
	}

	if got := len(table.ByKey); got != 4 {
		t.Fatalf("parsed %d entries, want 4", got)
	}

	m := table.ByKey["m"]
	if m.Key != "m" || m.Label != "Medium" || m.Value != 960 {
		t.Errorf("entry m = %+v, want {m Medium 960}", m)
	}

	// value=key form: label falls back to the key.
	xl := table.ByKey["xl"]
	if xl.Label != "xl" || xl.Value != 1600 {
		t.Errorf("entry xl = %+v, want label=xl value=1600", xl)
	}

	def, ok := table.Default()
	if !ok || def.Key != "l" || def.Value != 1200 {
		t.Errorf("default = %+v (ok=%v), want the +l entry", def, ok)
	}

	wantOrder := []string{"s", "m", "l", "xl"}
	for i, key := range wantOrder {
		if table.Order[i] != key {
			t.Errorf("Order[%d] = %s, want %s", i, table.Order[i], key)
		}
	}
}

func TestParseBreakpointsFirstEntryDefault(t *testing.T) {
	table, err := ParseBreakpoints("480=s\n960=m")
	if err != nil {
		t.Fatalf("ParseBreakpoints: %v", err)
	}
	def, ok := table.Default()
	if !ok || def.Key != "s" {
		t.Errorf("default = %+v, want first entry s when no + marker given", def)
	}
}

func TestParseBreakpointsBareValue(t *testing.T) {
	table, err := ParseBreakpoints("960")
	if err != nil {
		t.Fatalf("ParseBreakpoints: %v", err)
	}
	bp, ok := table.ByKey["960"]
	if !ok || bp.Label != "960" || bp.Value != 960 {
		t.Errorf("bare value entry = %+v, want key=label=value", bp)
	}
}

func TestParseBreakpointsDuplicateKeyLastWins(t *testing.T) {
	table, err := ParseBreakpoints("480=m|First\n960=m|Second")
	if err != nil {
		t.Fatalf("ParseBreakpoints: %v", err)
	}
	if len(table.Order) != 1 {
		t.Errorf("Order has %d entries, want 1", len(table.Order))
	}
	m := table.ByKey["m"]
	if m.Value != 960 || m.Label != "Second" {
		t.Errorf("duplicate key resolved to %+v, want the later entry", m)
	}
	// The overwritten entry was the implicit default; lookup by key must
	// now yield the winner.
	def, _ := table.Default()
	if def.Value != 960 {
		t.Errorf("default value = %d, want 960", def.Value)
	}
}

func TestParseBreakpointsErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"blank lines only", "\n\n  \n"},
		{"non-numeric value", "wide=l|Large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBreakpoints(tt.body)
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestParseRatios(t *testing.T) {
	body := `
16:9=+landscape|Landscape
4:3=classic
1:1=square|Square
`
	table, err := ParseRatios(body)
	if err != nil {
		t.Fatalf("ParseRatios: %v", err)
	}

	landscape := table.ByKey["landscape"]
	if !landscape.Valid || landscape.WUnits != 16 || landscape.HUnits != 9 {
		t.Errorf("landscape = %+v, want valid 16:9", landscape)
	}
	def, ok := table.Default()
	if !ok || def.Key != "landscape" {
		t.Errorf("default = %+v, want landscape", def)
	}
}

func TestParseRatiosInvalidValueKept(t *testing.T) {
	// A ratio without two numeric components stays in the table but is
	// flagged invalid; resolution substitutes 1:1.
	table, err := ParseRatios("16:9=landscape\nwide=banner")
	if err != nil {
		t.Fatalf("ParseRatios: %v", err)
	}
	banner, ok := table.ByKey["banner"]
	if !ok {
		t.Fatal("invalid-value entry missing from table")
	}
	if banner.Valid {
		t.Errorf("banner = %+v, want Valid=false", banner)
	}
}

func TestParseFactors(t *testing.T) {
	factors, err := ParseFactors("2, 0.5, 1, 1.5")
	if err != nil {
		t.Fatalf("ParseFactors: %v", err)
	}
	want := []float64{0.5, 1, 1.5, 2}
	if len(factors) != len(want) {
		t.Fatalf("got %v, want %v", factors, want)
	}
	for i := range want {
		if factors[i] != want[i] {
			t.Errorf("factors[%d] = %v, want %v (ascending)", i, factors[i], want[i])
		}
	}
}

func TestParseFactorsErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-numeric", "1, two"},
		{"zero", "0, 1"},
		{"negative", "-1.5"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFactors(tt.body)
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestParseFractions(t *testing.T) {
	fractions, err := ParseFractions("1, 1/2, 1/3, 2/3")
	if err != nil {
		t.Fatalf("ParseFractions: %v", err)
	}
	want := []Fraction{{1, 1}, {1, 2}, {1, 3}, {2, 3}}
	if len(fractions) != len(want) {
		t.Fatalf("got %v, want %v", fractions, want)
	}
	for i := range want {
		if fractions[i] != want[i] {
			t.Errorf("fractions[%d] = %v, want %v", i, fractions[i], want[i])
		}
	}
	if !fractions[0].Whole() {
		t.Error("1/1 not recognized as whole")
	}
	if fractions[1].Whole() {
		t.Error("1/2 reported as whole")
	}
}

func TestParseFractionsErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero denominator", "1/0"},
		{"non-integer", "a/2"},
		{"negative", "-1/2"},
		{"empty", ", ,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFractions(tt.body)
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error = %v, want ErrConfig", err)
			}
		})
	}
}
