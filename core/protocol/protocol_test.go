package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/chatrelay/relay/core/protocol"
)

func TestRole_IsValid(t *testing.T) {
	valid := []protocol.Role{protocol.RoleSystem, protocol.RoleUser, protocol.RoleAssistant}
	for _, r := range valid {
		if !r.IsValid() {
			t.Errorf("Role(%q).IsValid() = false, want true", r)
		}
	}

	invalid := []protocol.Role{"", "tool", "developer", "User"}
	for _, r := range invalid {
		if r.IsValid() {
			t.Errorf("Role(%q).IsValid() = true, want false", r)
		}
	}
}

func TestNewMessage(t *testing.T) {
	msg := protocol.NewMessage(protocol.RoleUser, "hello")

	if msg.Role != protocol.RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, protocol.RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
}

func TestMessage_JSONShape(t *testing.T) {
	// The wire format for both the upstream request and the snapshot file
	// is {"role": ..., "content": ...} with no extra fields.
	data, err := json.Marshal(protocol.NewMessage(protocol.RoleAssistant, "hi there"))
	if err != nil {
		t.Fatal(err)
	}

	want := `{"role":"assistant","content":"hi there"}`
	if string(data) != want {
		t.Errorf("marshaled message = %s, want %s", data, want)
	}

	var decoded protocol.Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Role != protocol.RoleAssistant || decoded.Content != "hi there" {
		t.Errorf("round-trip mismatch: %+v", decoded)
	}
}
