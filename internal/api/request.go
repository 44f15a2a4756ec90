package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
)

// ErrSerialization marks a payload that could not be encoded.
var ErrSerialization = errors.New("serialization error")

const (
	DefaultImageSize   = "256x256"
	DefaultTextModel   = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultSpeechModel = "whisper-1"

	jsonContentType = "application/json"
)

// Payload is an encoded request body together with its content type.
type Payload struct {
	Body        []byte
	ContentType string
}

// ImageRequest asks for a single generated image.
type ImageRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

func NewImageRequest(prompt string) ImageRequest {
	return ImageRequest{Prompt: prompt, N: 1, Size: DefaultImageSize}
}

func (r ImageRequest) Encode() (Payload, error) {
	return encodeJSON(r)
}

// TextRequest is a single-turn chat completion request.
type TextRequest struct {
	Model       string        `json:"model"`
	Messages    []MessageItem `json:"messages"`
	Temperature float64       `json:"temperature"`
}

func NewTextRequest(prompt string) TextRequest {
	return TextRequest{
		Model:       DefaultTextModel,
		Messages:    []MessageItem{{Role: "user", Content: prompt}},
		Temperature: DefaultTemperature,
	}
}

func (r TextRequest) Encode() (Payload, error) {
	return encodeJSON(r)
}

func encodeJSON(v any) (Payload, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return Payload{Body: b, ContentType: jsonContentType}, nil
}

// SpeechRequest uploads an audio file for transcription.
type SpeechRequest struct {
	FilePath       string
	Model          string
	ResponseFormat string
}

func NewSpeechRequest(path string) SpeechRequest {
	return SpeechRequest{FilePath: path, Model: DefaultSpeechModel, ResponseFormat: "text"}
}

// Encode reads the audio file and builds the multipart form. The boundary is
// derived from the form contents so identical inputs encode identically.
func (r SpeechRequest) Encode() (Payload, error) {
	audio, err := os.ReadFile(r.FilePath)
	if err != nil {
		return Payload{}, err
	}
	return r.encodeAudio(filepath.Base(r.FilePath), audio)
}

func (r SpeechRequest) encodeAudio(filename string, audio []byte) (Payload, error) {
	h := sha256.New()
	h.Write([]byte(r.Model))
	h.Write([]byte(r.ResponseFormat))
	h.Write([]byte(filename))
	h.Write(audio)
	boundary := "synthbrain" + hex.EncodeToString(h.Sum(nil))[:40]

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.SetBoundary(boundary); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if _, err := part.Write(audio); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := w.WriteField("model", r.Model); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := w.WriteField("response_format", r.ResponseFormat); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if err := w.Close(); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return Payload{Body: body.Bytes(), ContentType: w.FormDataContentType()}, nil
}
