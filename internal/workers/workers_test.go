package workers

import (
	"os"
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	os.Unsetenv("VARIANT_WORKERS")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "Encode pool (1.0x multiplier)",
			multiplier: 1.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "Scan pool (2.0x multiplier)",
			multiplier: 2.0,
			limit:      0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "Limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Very low multiplier still yields a worker",
			multiplier: 0.1,
			limit:      0,
			minExpect:  1,
			maxExpect:  max(1, int(float64(availableCPU)*0.1)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want between %d and %d",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int
		fallback bool
	}{
		{
			name:     "Valid override",
			envValue: "8",
			limit:    0,
			expected: 8,
		},
		{
			name:     "Override capped by limit",
			envValue: "20",
			limit:    10,
			expected: 10,
		},
		{
			name:     "Override below limit",
			envValue: "5",
			limit:    10,
			expected: 5,
		},
		{
			name:     "Non-numeric override ignored",
			envValue: "lots",
			limit:    0,
			fallback: true,
		},
		{
			name:     "Zero override ignored",
			envValue: "0",
			limit:    0,
			fallback: true,
		},
		{
			name:     "Negative override ignored",
			envValue: "-5",
			limit:    0,
			fallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VARIANT_WORKERS", tt.envValue)

			got := Count(1.0, tt.limit)

			if tt.fallback {
				if got < 1 {
					t.Errorf("Count with invalid override should fall back to at least 1, got %d", got)
				}
				return
			}
			if got != tt.expected {
				t.Errorf("Count(1.0, %d) with VARIANT_WORKERS=%s = %d, want %d",
					tt.limit, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForEncode(t *testing.T) {
	os.Unsetenv("VARIANT_WORKERS")

	if got := ForEncode(0); got < 1 || got > runtime.GOMAXPROCS(0) {
		t.Errorf("ForEncode(0) = %d, want between 1 and GOMAXPROCS", got)
	}
	if got := ForEncode(1); got != 1 {
		t.Errorf("ForEncode(1) = %d, want 1", got)
	}
}

func TestForScan(t *testing.T) {
	os.Unsetenv("VARIANT_WORKERS")

	if got := ForScan(0); got < 1 || got > runtime.GOMAXPROCS(0)*2 {
		t.Errorf("ForScan(0) = %d, want between 1 and 2x GOMAXPROCS", got)
	}
	if got := ForScan(3); got > 3 {
		t.Errorf("ForScan(3) = %d, should not exceed the limit", got)
	}
}

func TestCountBoundaries(t *testing.T) {
	os.Unsetenv("VARIANT_WORKERS")

	tests := []struct {
		name       string
		multiplier float64
		limit      int
	}{
		{"Zero multiplier", 0.0, 0},
		{"Negative multiplier", -1.0, 0},
		{"Very high multiplier", 100.0, 0},
		{"Very high limit", 1.0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, should never be less than 1", tt.multiplier, tt.limit, got)
			}
			if tt.limit > 0 && got > tt.limit {
				t.Errorf("Count(%v, %d) = %d, should not exceed limit", tt.multiplier, tt.limit, got)
			}
		})
	}
}
