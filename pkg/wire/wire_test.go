package wire

import (
	"encoding/json"
	"testing"
)

func TestPromptRequestFieldNames(t *testing.T) {
	b, err := json.Marshal(PromptRequest{V: ProtocolVersion, Prompt: "Hello", Stream: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["v"] != float64(1) || m["prompt"] != "Hello" || m["stream"] != true {
		t.Fatalf("unexpected encoding: %s", b)
	}
}

func TestDecodeResponseToken(t *testing.T) {
	tok, er, err := DecodeResponse([]byte(`{"token":"hi","eos":false}`))
	if err != nil || er != nil {
		t.Fatalf("er=%v err=%v", er, err)
	}
	if tok.Token == nil || *tok.Token != "hi" || tok.EOS {
		t.Fatalf("unexpected token response: %+v", tok)
	}
}

func TestDecodeResponseEndOfStream(t *testing.T) {
	tok, er, err := DecodeResponse([]byte(`{"token":null,"eos":true}`))
	if err != nil || er != nil {
		t.Fatalf("er=%v err=%v", er, err)
	}
	if tok.Token != nil || !tok.EOS {
		t.Fatalf("unexpected token response: %+v", tok)
	}
}

func TestDecodeResponseError(t *testing.T) {
	tok, er, err := DecodeResponse([]byte(`{"error":"model load failed: no such file","error_type":"ModelLoad"}`))
	if err != nil || tok != nil {
		t.Fatalf("tok=%v err=%v", tok, err)
	}
	if er.ErrorType != KindModelLoad {
		t.Fatalf("error kind %q, want %q", er.ErrorType, KindModelLoad)
	}
}

func TestDecodeResponseIgnoresUnknownFields(t *testing.T) {
	tok, er, err := DecodeResponse([]byte(`{"token":"x","eos":false,"latency_ms":5}`))
	if err != nil || er != nil || tok == nil {
		t.Fatalf("tok=%v er=%v err=%v", tok, er, err)
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	if _, _, err := DecodeResponse([]byte(`{"token":`)); err == nil {
		t.Fatal("expected decode error")
	}
}
