package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pixelcraft/internal/ledger"
	assistantrpc "pixelcraft/internal/rpc/assistant"
)

var ErrUnavailable = errors.New("assistant is not configured")

type Config struct {
	Enabled        bool
	RequestTimeout time.Duration
	HistoryLimit   int
}

// Service fronts the assistant adapter and records every exchange in
// the chat ledger keyed by session.
type Service struct {
	client *Client
	store  *ledger.Store
	cfg    Config
}

type ChatReply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func New(client *Client, store *ledger.Store, cfg Config) *Service {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Service{
		client: client,
		store:  store,
		cfg:    cfg,
	}
}

func (s *Service) Enabled() bool {
	return s.cfg.Enabled && s.client != nil
}

func (s *Service) Chat(ctx context.Context, sessionID, message string) (ChatReply, error) {
	if !s.Enabled() {
		return ChatReply{}, ErrUnavailable
	}
	sessionID = strings.TrimSpace(sessionID)
	message = strings.TrimSpace(message)
	if sessionID == "" || message == "" {
		return ChatReply{}, errors.New("session_id and message are required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	res, err := s.client.Chat(ctx, &assistantrpc.ChatRequest{
		SessionID: sessionID,
		Message:   message,
	})
	if err != nil {
		return ChatReply{}, fmt.Errorf("assistant chat: %w", err)
	}
	if res.Error != "" {
		return ChatReply{}, fmt.Errorf("assistant chat: %s", res.Error)
	}

	if err := s.store.AppendChatMessage(ctx, ledger.ChatMessageRecord{
		SessionID:   sessionID,
		UserMessage: message,
		AIResponse:  res.Response,
		Timestamp:   time.Now().UTC(),
	}); err != nil {
		return ChatReply{}, err
	}
	return ChatReply{Response: res.Response, SessionID: sessionID}, nil
}

func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]ledger.ChatMessageRecord, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.store.ListChatMessages(ctx, strings.TrimSpace(sessionID), limit)
}
