package carechat

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carelink/carechat-sdk-go/carechat/rest"
)

const historyPageSize = 50

// backendAPI is the slice of the REST client a session uses. Tests
// substitute a fake.
type backendAPI interface {
	History(ctx context.Context, conversationID string, limit int, before string) (*rest.HistoryResponse, error)
	CreateMessage(ctx context.Context, conversationID string, req rest.CreateMessageRequest) (*rest.MessageInfo, error)
	UploadFile(ctx context.Context, conversationID, filename, contentType string, r io.Reader, kind string) (*rest.MessageInfo, error)
	MarkRead(ctx context.Context, messageID string) error
}

// Session coordinates one open conversation: room membership, message
// reconciliation, typing presence and delivery fallback. It owns all
// per-conversation state and releases it on Stop; a new view builds a new
// session and re-seeds from history.
type Session struct {
	cfg    Config
	convID string
	client *Client
	tr     transport
	api    backendAPI
	logger Logger

	rooms  *RoomTracker
	store  *Store
	typing *TypingDebouncer
}

// NewSession builds a session for one conversation on an existing client.
// The client should already be connected, or Connect may be called after.
func NewSession(client *Client, api *rest.Client, cfg Config, conversationID string) *Session {
	s := newSession(client, api, cfg, conversationID)
	s.client = client
	s.logger = client.logger
	return s
}

// newSession wires the session against abstract collaborators.
func newSession(tr transport, api backendAPI, cfg Config, conversationID string) *Session {
	s := &Session{
		cfg:    cfg,
		convID: conversationID,
		tr:     tr,
		api:    api,
		logger: noopLogger{},
		rooms:  NewRoomTracker(tr, cfg.JoinTimeout),
		store:  NewStore(cfg.User),
	}
	s.typing = NewTypingDebouncer(conversationID, cfg.TypingIdle, cfg.TypingExpiry, s.emitTyping)
	return s
}

// Start registers event handlers, joins the room, and seeds history.
//
// A join failure is returned to the caller and not retried. A history fetch
// failure is NOT fatal: the session continues with an empty list and the
// error is only logged.
func (s *Session) Start(ctx context.Context) error {
	if s.client != nil {
		s.client.OnMessage(s.handleMessage)
		s.client.OnTyping(s.handleTyping)
		s.client.OnRead(s.handleRead)
		s.client.OnDisconnect(func(reason error) {
			// Membership does not survive the transport; the view must
			// call Rejoin once the connection is back.
			s.rooms.Reset()
		})
	}

	if err := s.rooms.Join(ctx, s.convID); err != nil {
		return err
	}

	page, err := s.api.History(ctx, s.convID, historyPageSize, "")
	if err != nil {
		s.logger.Warn("history fetch failed, continuing with empty list", map[string]any{
			"conversation": s.convID,
			"error":        err.Error(),
		})
		return nil
	}
	s.store.Seed(historyToMessages(page.Messages))
	return nil
}

// Rejoin re-establishes room membership after a reconnect. Reconnection
// never rejoins implicitly.
func (s *Session) Rejoin(ctx context.Context) error {
	return s.rooms.Join(ctx, s.convID)
}

// Stop leaves the room best-effort, deregisters every handler and cancels
// typing timers. Safe to call on any exit path, including after errors.
func (s *Session) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.rooms.Leave(ctx, s.convID)
	s.typing.Stop()
	if s.client != nil {
		s.client.dispatcher.Clear()
		s.client.OnDisconnect(nil)
	}
}

// Send publishes a text message. The optimistic entry is inserted before any
// network I/O; delivery tries the realtime channel first and falls back to
// one REST call. If both fail the optimistic entry stays, flagged Failed.
func (s *Session) Send(ctx context.Context, content string, kind MessageKind) (Message, error) {
	if kind == "" {
		kind = KindText
	}
	tag := uuid.NewString()
	optimistic := Message{
		ConversationID: s.convID,
		SenderID:       s.cfg.User,
		Content:        content,
		Kind:           kind,
		CreatedAt:      time.Now(),
		ClientTag:      tag,
	}
	localID := s.store.ApplyOptimistic(optimistic)
	optimistic.ID = localID
	s.typing.Flush()

	payload := SendPayload{
		ConversationID: s.convID,
		Content:        content,
		Kind:           kind,
		ClientTag:      tag,
	}
	ack, err := s.tr.EmitWithAck(ctx, inboundSendMsg, payload, s.cfg.AckTimeout)
	if err == nil {
		var ev MessageEvent
		if len(ack) > 0 && UnmarshalData(ack, &ev) == nil && ev.ID != "" {
			// The new_message broadcast reconciles the optimistic entry;
			// the ack only enriches the return value.
			return ev.Message(), nil
		}
		return optimistic, nil
	}

	s.logger.Warn("realtime send not acknowledged, trying REST fallback", map[string]any{
		"conversation": s.convID,
		"error":        err.Error(),
	})
	info, rerr := s.api.CreateMessage(ctx, s.convID, rest.CreateMessageRequest{
		Content:   content,
		Kind:      string(kind),
		ClientTag: tag,
	})
	if rerr != nil {
		s.store.MarkFailed(localID)
		return optimistic, WrapError(ErrorSendFailed, "realtime and fallback delivery both failed", rerr)
	}

	confirmed := infoToMessage(*info)
	s.store.ApplyIncoming(confirmed)
	return confirmed, nil
}

// SendFile validates and uploads an attachment. Validation happens before
// any network call; an oversized or disallowed file never leaves the client.
func (s *Session) SendFile(ctx context.Context, filename, contentType string, r io.Reader, size int64) (Message, error) {
	if err := s.validateAttachment(contentType, size); err != nil {
		return Message{}, err
	}

	kind := KindFile
	if strings.HasPrefix(contentType, "image/") {
		kind = KindImage
	}
	info, err := s.api.UploadFile(ctx, s.convID, filename, contentType, r, string(kind))
	if err != nil {
		return Message{}, WrapError(ErrorSendFailed, "attachment upload failed", err)
	}

	confirmed := infoToMessage(*info)
	s.store.ApplyIncoming(confirmed)
	return confirmed, nil
}

func (s *Session) validateAttachment(contentType string, size int64) error {
	if s.cfg.MaxAttachmentBytes > 0 && size > s.cfg.MaxAttachmentBytes {
		return NewError(ErrorAttachmentTooLarge, "attachment exceeds size limit")
	}
	if len(s.cfg.AllowedMIMETypes) == 0 {
		return nil
	}
	for _, allowed := range s.cfg.AllowedMIMETypes {
		if contentType == allowed {
			return nil
		}
	}
	return NewError(ErrorAttachmentType, "content type "+contentType+" is not allowed")
}

// Keystroke feeds the local typing debouncer.
func (s *Session) Keystroke() { s.typing.Keystroke() }

// Typists returns display names of remote users currently typing.
func (s *Session) Typists() []string { return s.typing.Typists() }

// Messages returns the ordered conversation snapshot.
func (s *Session) Messages() []Message { return s.store.Snapshot() }

// RoomState returns the current membership state.
func (s *Session) RoomState() RoomState { return s.rooms.State(s.convID) }

func (s *Session) emitTyping(isTyping bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.tr.Emit(ctx, inboundTyping, TypingPayload{
		ConversationID: s.convID,
		IsTyping:       isTyping,
	})
}

func (s *Session) handleMessage(ev MessageEvent) {
	if ev.ConversationID != s.convID {
		return
	}
	applied := s.store.ApplyIncoming(ev.Message())
	if applied && ev.SenderID != s.cfg.User {
		// Fire-and-forget read receipt; the store mutation never waits on it.
		go func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.api.MarkRead(ctx, id); err != nil {
				s.logger.Warn("mark read failed", map[string]any{"message": id, "error": err.Error()})
			}
		}(ev.ID)
	}
}

func (s *Session) handleTyping(ev TypingEvent) {
	s.typing.Observe(ev)
}

func (s *Session) handleRead(ev ReadEvent) {
	if ev.ConversationID != s.convID {
		return
	}
	s.store.MarkRead(ev.MessageID)
}

func historyToMessages(infos []rest.MessageInfo) []Message {
	// The backend returns newest-first; the store wants oldest-first.
	out := make([]Message, 0, len(infos))
	for i := len(infos) - 1; i >= 0; i-- {
		out = append(out, infoToMessage(infos[i]))
	}
	return out
}

func infoToMessage(info rest.MessageInfo) Message {
	kind := MessageKind(info.Kind)
	if kind == "" {
		kind = KindText
	}
	return Message{
		ID:             RemoteID(info.ID),
		ConversationID: info.ConversationID,
		SenderID:       info.SenderID,
		SenderName:     info.SenderName,
		Content:        info.Content,
		Kind:           kind,
		CreatedAt:      info.CreatedAt,
		Read:           info.IsRead,
		AttachmentURL:  info.AttachmentURL,
		ClientTag:      info.ClientTag,
	}
}
