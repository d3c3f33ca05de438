package main

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want func(t *testing.T, f CLIFlags)
	}{
		{
			name: "defaults",
			args: []string{"prog.bin"},
			want: func(t *testing.T, f CLIFlags) {
				t.Helper()
				assert.Equal(t, "prog.bin", f.Program)
				assert.Equal(t, 0, f.Verbosity)
				assert.False(t, f.Debug)
				assert.Equal(t, -1, f.PC)
				assert.Equal(t, -1, f.SP)
				assert.Equal(t, uint16(0), f.Origin)
				assert.False(t, f.CPM)
				assert.Equal(t, 2, f.Scale)
			},
		},
		{
			name: "repeated v",
			args: []string{"-v", "-v", "prog.bin"},
			want: func(t *testing.T, f CLIFlags) {
				t.Helper()
				assert.Equal(t, 2, f.Verbosity)
			},
		},
		{
			name: "combined vvv",
			args: []string{"-vvv", "prog.bin"},
			want: func(t *testing.T, f CLIFlags) {
				t.Helper()
				assert.Equal(t, 3, f.Verbosity)
			},
		},
		{
			name: "v with count",
			args: []string{"-v=4", "prog.bin"},
			want: func(t *testing.T, f CLIFlags) {
				t.Helper()
				assert.Equal(t, 4, f.Verbosity)
			},
		},
		{
			name: "debug short",
			args: []string{"-d", "prog.bin"},
			want: func(t *testing.T, f CLIFlags) {
				t.Helper()
				assert.True(t, f.Debug)
			},
		},
		{
			name: "addresses",
			args: []string{"-origin", "0x100", "-pc", "$0200", "-sp", "F000h", "prog.bin"},
			want: func(t *testing.T, f CLIFlags) {
				t.Helper()
				assert.Equal(t, uint16(0x100), f.Origin)
				assert.Equal(t, 0x200, f.PC)
				assert.Equal(t, 0xF000, f.SP)
			},
		},
		{
			name: "com enables cpm",
			args: []string{"TST8080.COM"},
			want: func(t *testing.T, f CLIFlags) {
				t.Helper()
				assert.True(t, f.CPM)
			},
		},
		{
			name: "version without program",
			args: []string{"-version"},
			want: func(t *testing.T, f CLIFlags) {
				t.Helper()
				assert.True(t, f.Version)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFlags(tt.args)
			assert.NoError(t, err)
			tt.want(t, f)
		})
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no program", nil},
		{"two programs", []string{"a.bin", "b.bin"}},
		{"bad address", []string{"-origin", "0x10000", "a.bin"}},
		{"bad count", []string{"-v=x", "a.bin"}},
		{"unknown flag", []string{"-nope", "a.bin"}},
		{"negative steps", []string{"-steps", "-1", "a.bin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			var usageErr *UsageError
			assert.True(t, errors.As(err, &usageErr), err)
		})
	}
}

func TestExpandShortFlags(t *testing.T) {
	got := expandShortFlags([]string{"-vv", "-v", "--vvv", "-version", "-v=2", "--", "-vv"})
	want := []string{"-v", "-v", "-v", "-v", "-v", "-v", "-version", "-v=2", "--", "-vv"}
	assert.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want uint16
	}{
		{"0", 0},
		{"256", 0x100},
		{"0x1234", 0x1234},
		{"$FFFF", 0xFFFF},
		{"ff00h", 0xFF00},
		{"0o17", 0o17},
	}
	for _, tt := range tests {
		v, err := parseAddress(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, v, tt.in)
	}
	_, err := parseAddress("h")
	assert.Error(t, err)
}
