package store_test

import (
	"encoding/json"
	"testing"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

func TestValidatePayloadScheduleItem(t *testing.T) {
	ok := json.RawMessage(`{"title":"Fajr Prayer","day":"2026-03-10","sort_order":1}`)
	if err := store.ValidatePayload("schedule_item", ok); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	cases := map[string]string{
		"missing title": `{"day":"2026-03-10"}`,
		"bad day":       `{"title":"x","day":"10-03-2026"}`,
		"unknown field": `{"title":"x","rating":5}`,
		"not json":      `{"title":`,
	}
	for name, payload := range cases {
		if err := store.ValidatePayload("schedule_item", json.RawMessage(payload)); err == nil {
			t.Errorf("%s: payload accepted, want validation error", name)
		}
	}
}

func TestValidatePayloadBroadcast(t *testing.T) {
	ok := json.RawMessage(`{"title":"Reminder","body":"Buses at noon","high_priority":true}`)
	if err := store.ValidatePayload("broadcast", ok); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	err := store.ValidatePayload("broadcast", json.RawMessage(`{"title":"Reminder"}`))
	if _, isValidation := store.AsValidation(err); !isValidation {
		t.Fatalf("missing body error = %v, want validation error", err)
	}
}

func TestValidatePayloadUnknownEntity(t *testing.T) {
	err := store.ValidatePayload("mystery", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("unknown entity accepted")
	}
	if _, isValidation := store.AsValidation(err); isValidation {
		t.Fatal("unknown entity reported as payload validation failure")
	}
}
