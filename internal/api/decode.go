package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrDecode marks a response body that is malformed or has an unexpected shape.
	ErrDecode = errors.New("decode error")
	// ErrEncoding marks a speech response that was not valid UTF-8.
	ErrEncoding = errors.New("encoding error")
)

const imageResponseSchema = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "created": {"type": "integer"},
    "data": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["url"],
        "properties": {"url": {"type": "string", "minLength": 1}}
      }
    }
  }
}`

const textResponseSchema = `{
  "type": "object",
  "required": ["choices"],
  "properties": {
    "id": {"type": "string"},
    "model": {"type": "string"},
    "choices": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["message"],
        "properties": {
          "message": {
            "type": "object",
            "required": ["role", "content"],
            "properties": {
              "role": {"type": "string"},
              "content": {"type": "string"}
            }
          },
          "finish_reason": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var (
	schemaOnce  sync.Once
	imageSchema *jsonschema.Schema
	textSchema  *jsonschema.Schema
	schemaErr   error
)

func compiledSchemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("image.json", strings.NewReader(imageResponseSchema)); err != nil {
			schemaErr = fmt.Errorf("image schema resource: %w", err)
			return
		}
		if err := c.AddResource("text.json", strings.NewReader(textResponseSchema)); err != nil {
			schemaErr = fmt.Errorf("text schema resource: %w", err)
			return
		}
		if imageSchema, schemaErr = c.Compile("image.json"); schemaErr != nil {
			return
		}
		textSchema, schemaErr = c.Compile("text.json")
	})
	return imageSchema, textSchema, schemaErr
}

func validate(s *jsonschema.Schema, body []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: malformed json: %v", ErrDecode, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: unexpected response shape: %v", ErrDecode, err)
	}
	return nil
}

// DecodeImage parses an image generation response. The response must carry
// at least one item with a non-empty URL.
func DecodeImage(body []byte) (ImageResponse, error) {
	s, _, err := compiledSchemas()
	if err != nil {
		return ImageResponse{}, err
	}
	if err := validate(s, body); err != nil {
		return ImageResponse{}, err
	}
	var res ImageResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return ImageResponse{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return res, nil
}

// DecodeText parses a chat completion response with at least one choice.
func DecodeText(body []byte) (TextResponse, error) {
	_, s, err := compiledSchemas()
	if err != nil {
		return TextResponse{}, err
	}
	if err := validate(s, body); err != nil {
		return TextResponse{}, err
	}
	var res TextResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return TextResponse{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return res, nil
}

// DecodeSpeech returns the transcript text. Invalid UTF-8 sequences are
// replaced and reported as ErrEncoding alongside the usable text.
func DecodeSpeech(body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}
	return strings.ToValidUTF8(string(body), "�"), ErrEncoding
}

type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// DecodeAPIError extracts the message from an {"error":{...}} body. When the
// body has no such envelope its trimmed text is returned instead.
func DecodeAPIError(body []byte) string {
	var env apiErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		if env.Error.Type != "" {
			return env.Error.Type + ": " + env.Error.Message
		}
		return env.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}
