package carechat

import (
	"encoding/json"
	"testing"
)

func TestDispatcherMessage(t *testing.T) {
	var got MessageEvent
	var errCalled bool
	var d Dispatcher
	d.SetOnMessage(func(ev MessageEvent) { got = ev })
	d.SetOnError(func(err error) { errCalled = true; _ = err })

	raw, _ := json.Marshal(MessageEvent{ID: "srv-1", ConversationID: "conv-1", SenderID: "u2", Content: "hi"})
	d.Dispatch(Outbound{Type: outboundEvent, Event: eventNewMessage, Data: raw})

	if got.ID != "srv-1" || got.ConversationID != "conv-1" || got.Content != "hi" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if errCalled {
		t.Fatalf("unexpected error callback")
	}
}

func TestDispatcherTyping(t *testing.T) {
	var got TypingEvent
	var d Dispatcher
	d.SetOnTyping(func(ev TypingEvent) { got = ev })

	raw, _ := json.Marshal(TypingEvent{ConversationID: "conv-1", UserID: "u2", IsTyping: true})
	d.Dispatch(Outbound{Type: outboundEvent, Event: eventTypingStatus, Data: raw})

	if got.UserID != "u2" || !got.IsTyping {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestDispatcherRead(t *testing.T) {
	var got ReadEvent
	var d Dispatcher
	d.SetOnRead(func(ev ReadEvent) { got = ev })

	raw, _ := json.Marshal(ReadEvent{ConversationID: "conv-1", MessageID: "srv-1", ReaderID: "u2"})
	d.Dispatch(Outbound{Type: outboundEvent, Event: eventMessageRead, Data: raw})

	if got.MessageID != "srv-1" {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestDispatcherError(t *testing.T) {
	var errGot error
	var d Dispatcher
	d.SetOnError(func(err error) { errGot = err })

	d.Dispatch(Outbound{Type: outboundError, Error: &Error{Code: "unauthorized", Msg: "no token"}})
	if errGot == nil {
		t.Fatalf("expected error callback")
	}
	if !IsAuthError(errGot) {
		t.Fatalf("expected auth error, got %v", errGot)
	}
}

func TestDispatcherClear(t *testing.T) {
	var called bool
	var d Dispatcher
	d.SetOnMessage(func(MessageEvent) { called = true })
	d.Clear()

	raw, _ := json.Marshal(MessageEvent{ID: "srv-1"})
	d.Dispatch(Outbound{Type: outboundEvent, Event: eventNewMessage, Data: raw})

	if called {
		t.Fatalf("cleared callback must not fire")
	}
}

func TestDispatcherMalformedPayload(t *testing.T) {
	var errGot error
	var d Dispatcher
	d.SetOnMessage(func(MessageEvent) { t.Fatal("should not fire") })
	d.SetOnError(func(err error) { errGot = err })

	d.Dispatch(Outbound{Type: outboundEvent, Event: eventNewMessage, Data: json.RawMessage(`{broken`)})
	if errGot == nil {
		t.Fatalf("expected serialization error")
	}
}
