// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestParseArgs(t *testing.T) {
	testCases := []struct {
		name string
		raw  []string
		want Options
	}{
		{
			name: "empty",
			raw:  nil,
			want: Options{},
		},
		{
			name: "long flags with values",
			raw:  []string{"--endpoint", "http://10.0.0.5:8000", "--company", "acme"},
			want: Options{Endpoint: "http://10.0.0.5:8000", CompanyID: "acme"},
		},
		{
			name: "equals form",
			raw:  []string{"--endpoint=http://10.0.0.5:8000", "--theme=light"},
			want: Options{Endpoint: "http://10.0.0.5:8000", Theme: "light"},
		},
		{
			name: "short flags",
			raw:  []string{"-e", "http://h:1", "-c", "globex"},
			want: Options{Endpoint: "http://h:1", CompanyID: "globex"},
		},
		{
			name: "boolean flags",
			raw:  []string{"--plain", "--no-stream"},
			want: Options{Plain: true, NoStream: true},
		},
		{
			name: "version and help",
			raw:  []string{"-v", "-h"},
			want: Options{Version: true, Help: true},
		},
		{
			name: "mixed",
			raw:  []string{"--plain", "--company", "acme", "--no-stream"},
			want: Options{Plain: true, CompanyID: "acme", NoStream: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseArgs(tc.raw); got != tc.want {
				t.Errorf("ParseArgs(%v) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestArgParser_ExplicitBooleanValues(t *testing.T) {
	p := NewArgParser([]string{"--plain=false", "--no-stream=true"})
	if p.BoolFlag("plain") {
		t.Error("--plain=false parsed as true")
	}
	if !p.BoolFlag("no-stream") {
		t.Error("--no-stream=true parsed as false")
	}
}

func TestArgParser_Positional(t *testing.T) {
	p := NewArgParser([]string{"--plain", "leftover", "extra"})
	got := p.Positional()
	if len(got) != 2 || got[0] != "leftover" || got[1] != "extra" {
		t.Errorf("Positional() = %v", got)
	}
}
