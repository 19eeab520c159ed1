package carechat

import "sync"

// Dispatcher routes gateway events to registered callbacks. Callbacks may be
// registered and cleared while the read loop is running, so access is
// mutex-guarded; a cleared callback is never invoked again.
type Dispatcher struct {
	mu        sync.Mutex
	onMessage func(MessageEvent)
	onTyping  func(TypingEvent)
	onRead    func(ReadEvent)
	onError   func(error)
}

func (d *Dispatcher) SetOnMessage(fn func(MessageEvent)) {
	d.mu.Lock()
	d.onMessage = fn
	d.mu.Unlock()
}

func (d *Dispatcher) SetOnTyping(fn func(TypingEvent)) {
	d.mu.Lock()
	d.onTyping = fn
	d.mu.Unlock()
}

func (d *Dispatcher) SetOnRead(fn func(ReadEvent)) {
	d.mu.Lock()
	d.onRead = fn
	d.mu.Unlock()
}

func (d *Dispatcher) SetOnError(fn func(error)) {
	d.mu.Lock()
	d.onError = fn
	d.mu.Unlock()
}

// Clear deregisters every callback. After Clear returns no callback fires,
// even for events already queued on the transport.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.onMessage = nil
	d.onTyping = nil
	d.onRead = nil
	d.onError = nil
	d.mu.Unlock()
}

func (d *Dispatcher) handlers() (func(MessageEvent), func(TypingEvent), func(ReadEvent), func(error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onMessage, d.onTyping, d.onRead, d.onError
}

func (d *Dispatcher) Dispatch(out Outbound) {
	onMessage, onTyping, onRead, onError := d.handlers()

	if out.Type == outboundError && out.Error != nil {
		if onError != nil {
			onError(FromProtocolError(out.Error))
		}
		return
	}

	switch out.Event {
	case eventNewMessage:
		if onMessage == nil {
			return
		}
		var ev MessageEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(onError, WrapError(ErrorSerialization, "failed to unmarshal new_message event", err))
			return
		}
		onMessage(ev)
	case eventTypingStatus:
		if onTyping == nil {
			return
		}
		var ev TypingEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(onError, WrapError(ErrorSerialization, "failed to unmarshal typing_status event", err))
			return
		}
		onTyping(ev)
	case eventMessageRead:
		if onRead == nil {
			return
		}
		var ev ReadEvent
		if err := UnmarshalData(out.Data, &ev); err != nil {
			d.fireError(onError, WrapError(ErrorSerialization, "failed to unmarshal message_read event", err))
			return
		}
		onRead(ev)
	}
}

func (d *Dispatcher) fireError(onError func(error), err error) {
	if onError != nil && err != nil {
		onError(err)
	}
}
