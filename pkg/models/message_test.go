package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestOriginAndStateValid(t *testing.T) {
	if !OriginUser.Valid() || !OriginSystem.Valid() {
		t.Fatal("known origins must validate")
	}
	if Origin("bot").Valid() {
		t.Fatal("unknown origin must not validate")
	}
	for _, s := range []DeliveryState{DeliverySent, DeliveryDelivered, DeliveryRead} {
		if !s.Valid() {
			t.Fatalf("state %q must validate", s)
		}
	}
	if DeliveryState("queued").Valid() {
		t.Fatal("unknown state must not validate")
	}
}

func TestMessageJSONKeepsNullEditedAt(t *testing.T) {
	m := Message{
		ID:            1,
		Content:       "hi",
		Origin:        OriginUser,
		Timestamp:     time.Now().UTC(),
		DeliveryState: DeliverySent,
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Clients rely on editedAt being present and null until the first edit.
	if !strings.Contains(string(b), `"editedAt":null`) {
		t.Fatalf("editedAt missing or non-null: %s", b)
	}
}
