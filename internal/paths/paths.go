package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultTranscriptFilename = "completion_responses.txt"
	imageExt                  = ".png"
	textExt                   = ".txt"
)

// Builder constructs output paths rooted at Base (default: working directory).
type Builder struct {
	Base       string
	Transcript string
}

func New(base, transcript string) *Builder {
	if transcript == "" {
		transcript = defaultTranscriptFilename
	}
	return &Builder{Base: base, Transcript: transcript}
}

var nameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// FormatOutName replaces every space in prompt with an underscore and appends ext.
// Path separators are replaced too so the name stays inside the output dir.
func FormatOutName(prompt, ext string) string {
	return nameReplacer.Replace(prompt) + ext
}

// TextOutName returns the audio file's base name with its extension replaced by .txt.
func TextOutName(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + textExt
}

func (b *Builder) join(name string) string {
	if b.Base == "" {
		return name
	}
	return filepath.Join(b.Base, name)
}

// Image is the output path for an image generated from prompt.
func (b *Builder) Image(prompt string) string {
	return b.join(FormatOutName(prompt, imageExt))
}

// TranscriptLog is the append-only completion transcript.
func (b *Builder) TranscriptLog() string {
	return b.join(b.Transcript)
}

// SpeechText is the output path for a transcription of audioPath.
func (b *Builder) SpeechText(audioPath string) string {
	return b.join(TextOutName(audioPath))
}

// EnsureOutDir creates the output directory if it does not exist.
func (b *Builder) EnsureOutDir() error {
	if b.Base == "" {
		return nil
	}
	return os.MkdirAll(b.Base, 0o755)
}

// CheckWritable fails when path exists and is a directory, so a bad name is
// caught before the download.
func CheckWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking file: %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("output path is a directory: %s", path)
	}
	return nil
}
