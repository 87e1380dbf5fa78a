package scheduler

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  JobTime
	}{
		{
			name:  "minute only",
			input: "5",
			want:  JobTime{Wildcard, Wildcard, Wildcard, Wildcard, 5, 0},
		},
		{
			name:  "zero minute",
			input: "0",
			want:  JobTime{Wildcard, Wildcard, Wildcard, Wildcard, 0, 0},
		},
		{
			name:  "minute with second",
			input: "0.30",
			want:  JobTime{Wildcard, Wildcard, Wildcard, Wildcard, 0, 30},
		},
		{
			name:  "hour and minute",
			input: "01:05",
			want:  JobTime{Wildcard, Wildcard, Wildcard, 1, 5, 0},
		},
		{
			name:  "daily with second",
			input: "09:30.15",
			want:  JobTime{Wildcard, Wildcard, Wildcard, 9, 30, 15},
		},
		{
			name:  "fully concrete",
			input: "2024:03:15:09:30.15",
			want:  JobTime{2024, 3, 15, 9, 30, 15},
		},
		{
			name:  "monthly",
			input: "15:09:30",
			want:  JobTime{Wildcard, Wildcard, 15, 9, 30, 0},
		},
		{
			name:  "garbage field becomes wildcard",
			input: "xx:30",
			want:  JobTime{Wildcard, Wildcard, Wildcard, Wildcard, 30, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{"5", "0.30", "01:05", "01:05.30", "15:09:30", "2024:03:15:09:30.15"}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			parsed := Parse(input)
			again := Parse(parsed.String())
			if again != parsed {
				t.Errorf("round trip of %q: got %+v, want %+v (rendered %q)",
					input, again, parsed, parsed.String())
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal concrete", "01:05", "01:05", 0},
		{"earlier minute", "01:05", "01:06", -1},
		{"later hour", "02:05", "01:30", 1},
		{"wildcard matches anything", "30", "2024:03:15:09:30", 0},
		{"wildcard hour skipped", "5", "01:06", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.a).Compare(Parse(tt.b))
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsTemplate(t *testing.T) {
	if !Parse("01:05").IsTemplate() {
		t.Error("open template reported as concrete")
	}
	if Parse("2024:03:15:09:30").IsTemplate() {
		t.Error("concrete time reported as template")
	}
}

func TestMaterialize(t *testing.T) {
	base := time.Date(2024, 3, 15, 10, 20, 40, 0, time.Local)

	tests := []struct {
		name     string
		template string
		shift    int
		want     time.Time
	}{
		{
			name:     "fill from base",
			template: "5",
			shift:    0,
			want:     time.Date(2024, 3, 15, 10, 5, 0, 0, time.Local),
		},
		{
			name:     "minute template shifts by hour",
			template: "0",
			shift:    1,
			want:     time.Date(2024, 3, 15, 11, 0, 0, 0, time.Local),
		},
		{
			name:     "hour template shifts by day",
			template: "09:30",
			shift:    1,
			want:     time.Date(2024, 3, 16, 9, 30, 0, 0, time.Local),
		},
		{
			name:     "day template shifts by month",
			template: "15:09:30",
			shift:    1,
			want:     time.Date(2024, 4, 15, 9, 30, 0, 0, time.Local),
		},
		{
			name:     "concrete ignores shift",
			template: "2024:03:15:09:30",
			shift:    1,
			want:     time.Date(2024, 3, 15, 9, 30, 0, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.template).Materialize(tt.shift, base)
			if !got.Equal(tt.want) {
				t.Errorf("Materialize(%q, shift=%d) = %v, want %v",
					tt.template, tt.shift, got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		template string
		want     time.Duration
	}{
		{"0.30", 30 * time.Second},
		{"1:00", time.Hour},
		{"5", 5 * time.Minute},
		{"01:00:00", 24 * time.Hour},
	}

	for _, tt := range tests {
		if got := Parse(tt.template).Duration(); got != tt.want {
			t.Errorf("Duration(%q) = %v, want %v", tt.template, got, tt.want)
		}
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"5", "05"},
		{"01:05", "01:05"},
		{"15:09:30", "15:09:30"},
		{"2024:03:15:09:30", "2024:03:15:09:30"},
	}

	for _, tt := range tests {
		if got := Parse(tt.template).Key(); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}
