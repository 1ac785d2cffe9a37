package util_test

import (
	"testing"

	"github.com/journalkeeper-go/journal/internal/util"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		fallback int
		want     int
	}{
		{"123", 0, 123},
		{"0", 99, 0},
		{"-5", 0, -5},
		{"abc", 42, 42},
		{"", 7, 7},
		{"   ", 8, 8},
	}

	for _, tt := range tests {
		got := util.ParseInt(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseInt(%q, %d) = %d; want %d", tt.input, tt.fallback, got, tt.want)
		}
	}
}

func TestParseInt64(t *testing.T) {
	tests := []struct {
		input    string
		fallback int64
		want     int64
	}{
		{"134217728", 0, 134217728},
		{"-1", 0, -1},
		{"abc", 42, 42},
		{"", 7, 7},
	}

	for _, tt := range tests {
		got := util.ParseInt64(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseInt64(%q, %d) = %d; want %d", tt.input, tt.fallback, got, tt.want)
		}
	}
}

func TestParseStringSlice(t *testing.T) {
	tests := []struct {
		input    string
		fallback []string
		want     []string
	}{
		{"a,b,c", nil, []string{"a", "b", "c"}},
		{" a , b ,c ", nil, []string{"a", "b", "c"}},
		{"", []string{"x"}, []string{"x"}},
		{"  ", []string{"x"}, []string{"x"}},
	}

	for _, tt := range tests {
		got := util.ParseStringSlice(tt.input, tt.fallback)
		if len(got) != len(tt.want) {
			t.Errorf("ParseStringSlice(%q) = %v; want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseStringSlice(%q) = %v; want %v", tt.input, got, tt.want)
				break
			}
		}
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"t", false, true},
		{"f", true, false},
		{"yes", false, false},
		{"", true, true},
		{"   ", false, false},
	}

	for _, tt := range tests {
		got := util.ParseBool(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseBool(%q, %v) = %v; want %v", tt.input, tt.fallback, got, tt.want)
		}
	}
}
