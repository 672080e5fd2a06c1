package ws

import (
	"bytes"
	"testing"
)

func TestDeserializeJoinRoom(t *testing.T) {
	raw := []byte(`{"event":"join-room","data":{"roomKind":"group","roomId":42}}`)

	msg, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	join, ok := msg.(*MessageJoinRoom)
	if !ok {
		t.Fatalf("type = %T, want *MessageJoinRoom", msg)
	}
	if join.RoomKind != "group" || join.RoomID != 42 {
		t.Errorf("payload = %+v", join)
	}
}

func TestDeserializeUnknownEvent(t *testing.T) {
	if _, err := Deserialize([]byte(`{"event":"self-destruct","data":{}}`)); err == nil {
		t.Error("unknown event should fail")
	}
}

func TestDeserializeNilData(t *testing.T) {
	msg, err := Deserialize([]byte(`{"event":"ping"}`))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if _, ok := msg.(*MessagePing); !ok {
		t.Errorf("type = %T, want *MessagePing", msg)
	}
}

func TestTypeRegistryCoversInboundEvents(t *testing.T) {
	registry := GetTypeRegistry()
	for _, event := range []string{
		"join-room", "read-signal", "report-current-path", "request-initial-unread", "ping",
	} {
		if _, ok := registry[event]; !ok {
			t.Errorf("event %q not registered", event)
		}
	}
}

func TestCompressRoundtrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"event":"new-message"}`), 50)

	compressed, err := compressData(payload)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(compressed) >= len(payload) {
		t.Errorf("compressed %d bytes, original %d", len(compressed), len(payload))
	}

	out, err := DecompressMessage(compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("roundtrip mismatch")
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := DecompressMessage([]byte("not gzip")); err == nil {
		t.Error("plain bytes should not decompress")
	}
}
