package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuanying/epubterm/internal/epubtest"
)

func TestRootCmd_PrintsStructure(t *testing.T) {
	dir := t.TempDir()
	b := epubtest.Simple()
	b.Chapters = append(b.Chapters, epubtest.Chapter{
		ID: "broken", Href: "broken.xhtml", MediaType: "application/xhtml+xml",
		Body: "\x00\x01\x02", Raw: true,
	})
	path := epubtest.Write(t, dir, "simple.epub", b)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--width", "30", "--height", "5", "-w", "19", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"--- Metadata ---",
		"Language:    English (en)",
		"--- Spine (4 documents) ---",
		"  1. One",
		"[placeholder]",
		"Viewport:    30x5",
		"Words:       19",
		"Reading:     1m0s at 19 wpm",
		"--- Warnings (1) ---",
		"broken.xhtml",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRootCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.epub")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			if err := cmd.Execute(); err == nil {
				t.Fatal("Execute() should fail")
			}
		})
	}
}
