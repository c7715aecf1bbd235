package kafka

import (
	"encoding/json"
	"testing"
)

func TestEncode(t *testing.T) {
	msg, err := encode(Event{Key: "k", Value: map[string]int{"n": 1}})
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Key) != "k" || string(msg.Value) != `{"n":1}` {
		t.Errorf("message = %q/%q", msg.Key, msg.Value)
	}
	if _, err := encode(Event{Value: make(chan int)}); err == nil {
		t.Error("expected marshal error for channel value")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Query string `json:"query"`
	}
	raw, _ := json.Marshal(payload{Query: "who"})
	got, err := DecodeJSON[payload](raw)
	if err != nil || got.Query != "who" {
		t.Errorf("DecodeJSON = %+v, %v", got, err)
	}
	if _, err := DecodeJSON[payload]([]byte("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}
}
