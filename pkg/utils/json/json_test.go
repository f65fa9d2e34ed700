package json

import (
	"bytes"
	"strings"
	"testing"
)

type chunkPayload struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := chunkPayload{Page: 3, Text: "mitochondria is the powerhouse of the cell"}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out chunkPayload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	var out chunkPayload
	if err := Unmarshal([]byte(`{"page": "not a number"}`), &out); err == nil {
		t.Error("expected error for mismatched type")
	}
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(chunkPayload{Page: 1, Text: "hello"}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out chunkPayload
	if err := NewDecoder(strings.NewReader(buf.String())).Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Page != 1 || out.Text != "hello" {
		t.Errorf("unexpected decode result: %+v", out)
	}
}
