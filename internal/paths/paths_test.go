package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatOutName(t *testing.T) {
	cases := map[string]string{
		"a red fox":      "a_red_fox.png",
		"fox":            "fox.png",
		"  two  spaces ": "__two__spaces_.png",
		"":               ".png",
	}
	for prompt, want := range cases {
		if got := FormatOutName(prompt, ".png"); got != want {
			t.Fatalf("FormatOutName(%q): got %q want %q", prompt, got, want)
		}
	}
	for prompt, want := range map[string]string{
		"../x":        ".._x.png",
		"a/b c":       "a_b_c.png",
		`..\evil`:     ".._evil.png",
		"/etc/passwd": "_etc_passwd.png",
	} {
		got := FormatOutName(prompt, ".png")
		if got != want {
			t.Fatalf("FormatOutName(%q): got %q want %q", prompt, got, want)
		}
		if filepath.Base(got) != got {
			t.Fatalf("FormatOutName(%q) escapes the output dir: %q", prompt, got)
		}
	}
	// A name without spaces maps to itself plus the extension, once.
	if got := FormatOutName("a_red_fox", ".png"); got != "a_red_fox.png" {
		t.Fatalf("FormatOutName not idempotent on underscores: %q", got)
	}
}

func TestTextOutName(t *testing.T) {
	cases := map[string]string{
		"memo.mp3":            "memo.txt",
		"./audio/meeting.m4a": "meeting.txt",
		"/tmp/rec.2024.wav":   "rec.2024.txt",
		"noext":               "noext.txt",
	}
	for in, want := range cases {
		if got := TextOutName(in); got != want {
			t.Fatalf("TextOutName(%q): got %q want %q", in, got, want)
		}
	}
}

func TestBuilderPaths(t *testing.T) {
	b := New("", "")
	if b.Image("a red fox") != "a_red_fox.png" {
		t.Fatalf("Image path incorrect: %s", b.Image("a red fox"))
	}
	if b.TranscriptLog() != "completion_responses.txt" {
		t.Fatalf("TranscriptLog path incorrect: %s", b.TranscriptLog())
	}

	base := t.TempDir()
	b = New(filepath.Join(base, "out"), "log.txt")
	if b.SpeechText("x/memo.mp3") != filepath.Join(base, "out", "memo.txt") {
		t.Fatalf("SpeechText path incorrect: %s", b.SpeechText("x/memo.mp3"))
	}
	if b.TranscriptLog() != filepath.Join(base, "out", "log.txt") {
		t.Fatalf("TranscriptLog path incorrect: %s", b.TranscriptLog())
	}
	if err := b.EnsureOutDir(); err != nil {
		t.Fatalf("EnsureOutDir error: %v", err)
	}
	if info, err := os.Stat(b.Base); err != nil || !info.IsDir() {
		t.Fatalf("out dir not created: %v", err)
	}
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	if err := CheckWritable(filepath.Join(dir, "new.png")); err != nil {
		t.Fatalf("missing file should be writable: %v", err)
	}
	existing := filepath.Join(dir, "old.png")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := CheckWritable(existing); err != nil {
		t.Fatalf("existing file should be overwritable: %v", err)
	}
	if err := CheckWritable(dir); err == nil {
		t.Fatalf("expected error for directory")
	}
}
