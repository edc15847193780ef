package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChatMessage_UnmarshalNumericID(t *testing.T) {
	var m ChatMessage
	payload := `{"chatId":42,"memberId":7,"nickName":"mina","message":"hi","chattedAt":"2024-05-09T10:00:00Z"}`
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		t.Fatalf("numeric chatId rejected: %v", err)
	}
	if m.ID != "42" {
		t.Errorf("ID = %q, want %q", m.ID, "42")
	}
	if m.Body != "hi" || m.AuthorID != 7 {
		t.Errorf("sibling fields lost: %+v", m)
	}
}

func TestChatMessage_UnmarshalStringID(t *testing.T) {
	var m ChatMessage
	if err := json.Unmarshal([]byte(`{"chatId":"abc-123","message":"hi"}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.ID != "abc-123" {
		t.Errorf("ID = %q, want %q", m.ID, "abc-123")
	}
}

func TestChatMessage_UnmarshalMissingID(t *testing.T) {
	for _, payload := range []string{`{"message":"hi"}`, `{"chatId":null,"message":"hi"}`} {
		var m ChatMessage
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			t.Fatalf("%s: %v", payload, err)
		}
		if m.ID != "" {
			t.Errorf("%s: ID = %q, want empty", payload, m.ID)
		}
	}
}

func TestChatMessage_MarshalKeepsStringID(t *testing.T) {
	m := ChatMessage{ID: "uuid-1", AuthorID: 7, Body: "hi", SentAt: time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var back ChatMessage
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.ID != "uuid-1" {
		t.Errorf("round-trip ID = %q, want %q", back.ID, "uuid-1")
	}
}
