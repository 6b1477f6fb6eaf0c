package models

import (
	"strings"
	"testing"
	"time"
)

func TestInboundMessageValidate(t *testing.T) {
	valid := InboundMessage{TenantID: "t1", ConversationID: "t1:c1", CustomerID: "c1", Body: "hi"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid message rejected: %v", err)
	}

	payloadOnly := InboundMessage{TenantID: "t1", ConversationID: "t1:c1", PayloadID: "btn_book"}
	if err := payloadOnly.Validate(); err != nil {
		t.Errorf("payload-only message rejected: %v", err)
	}

	cases := []struct {
		name string
		msg  InboundMessage
	}{
		{"missing conversation", InboundMessage{TenantID: "t1", Body: "hi"}},
		{"missing tenant", InboundMessage{ConversationID: "c", Body: "hi"}},
		{"empty body and payload", InboundMessage{TenantID: "t1", ConversationID: "c"}},
		{"oversized body", InboundMessage{TenantID: "t1", ConversationID: "c", Body: strings.Repeat("a", MaxMessageLength+1)}},
	}
	for _, tc := range cases {
		if err := tc.msg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestStateDeltaApplyDoesNotMutateInput(t *testing.T) {
	state := ConversationState{
		ConversationID: "c1",
		Entities:       map[string]string{"product_id": "p1"},
	}
	delta := &StateDelta{
		AwaitingResponse: BoolPtr(true),
		CurrentFlow:      StringPtr(FlowOrdering),
		Entities:         map[string]string{"order_id": "o1"},
	}

	now := time.Now()
	out := delta.Apply(state, now)

	if !out.AwaitingResponse || out.CurrentFlow != FlowOrdering {
		t.Errorf("delta fields not applied: %+v", out)
	}
	if out.Entities["order_id"] != "o1" || out.Entities["product_id"] != "p1" {
		t.Errorf("entities not merged: %+v", out.Entities)
	}
	if !out.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", out.UpdatedAt, now)
	}

	if state.AwaitingResponse || state.CurrentFlow != "" {
		t.Error("input state was mutated")
	}
	if _, leaked := state.Entities["order_id"]; leaked {
		t.Error("input entities map was mutated")
	}
}

func TestStateDeltaApplyEmptyEntityDeletes(t *testing.T) {
	state := ConversationState{Entities: map[string]string{"product_id": "p1", "order_id": "o1"}}
	delta := &StateDelta{Entities: map[string]string{"product_id": ""}}

	out := delta.Apply(state, time.Now())
	if _, ok := out.Entities["product_id"]; ok {
		t.Error("empty entity value did not delete the key")
	}
	if out.Entities["order_id"] != "o1" {
		t.Error("untouched entity lost")
	}
}

func TestNilStateDeltaApply(t *testing.T) {
	var delta *StateDelta
	state := ConversationState{ConversationID: "c1", AwaitingResponse: true}
	out := delta.Apply(state, time.Now())
	if out.ConversationID != "c1" || !out.AwaitingResponse {
		t.Errorf("nil delta changed state: %+v", out)
	}
}

func TestMenuExpiry(t *testing.T) {
	now := time.Now()
	state := ConversationState{LastMenu: &Menu{Type: "products", ShownAt: now.Add(-MenuTTL - time.Second)}}
	if state.ActiveMenu(now) != nil {
		t.Error("expired menu still active")
	}

	state.LastMenu.ShownAt = now.Add(-time.Minute)
	if state.ActiveMenu(now) == nil {
		t.Error("fresh menu reported inactive")
	}
}

func TestReferenceContextExpired(t *testing.T) {
	now := time.Now()
	rc := ReferenceContext{ExpiresAt: now.Add(ReferenceTTL)}
	if rc.Expired(now) {
		t.Error("fresh context reported expired")
	}
	if !rc.Expired(now.Add(ReferenceTTL)) {
		t.Error("context at expiry instant must be expired")
	}
}

func TestActionHasSideEffect(t *testing.T) {
	a := Action{SideEffects: []string{SideEffectOrderCreated}}
	if !a.HasSideEffect(SideEffectOrderCreated) {
		t.Error("present side effect not found")
	}
	if a.HasSideEffect(SideEffectHandoffTriggered) {
		t.Error("absent side effect reported present")
	}
}
