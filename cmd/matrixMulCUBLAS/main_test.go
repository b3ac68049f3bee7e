package main

import (
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want options
	}{
		{name: "empty", args: nil, want: options{}},
		{name: "verbose short", args: []string{"-v"}, want: options{verbose: true}},
		{name: "verbose long", args: []string{"--verbose"}, want: options{verbose: true}},
		{name: "timing log", args: []string{"-timing-log=out.json"}, want: options{timingLog: "out.json"}},
		{name: "timing log double dash", args: []string{"--timing-log=out.json"}, want: options{timingLog: "out.json"}},
		{name: "unknown flags ignored", args: []string{"--frobnicate", "-x=1", "--device=0"}, want: options{}},
		{name: "mixed", args: []string{"--device=0", "-v", "-timing-log=t.json"}, want: options{verbose: true, timingLog: "t.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseArgs(tt.args); got != tt.want {
				t.Errorf("parseArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}
