package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fitspace/fitspace/internal/advisor"
	"github.com/fitspace/fitspace/internal/store"
)

const (
	// MaxMessageLength bounds a user message, counted in characters.
	MaxMessageLength = 500
	// ConversationPageSize is how many turns Conversation returns.
	ConversationPageSize = 50
)

var (
	ErrMissingUser    = errors.New("user id is required")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", MaxMessageLength)
)

// Advisor produces a reply for a new message given the prior conversation.
// Implementations must always return a non-empty reply.
type Advisor interface {
	Ask(ctx context.Context, history []advisor.Turn, newMessage string) string
}

// Metrics is the subset of instruments the service reports to.
type Metrics interface {
	CountTurn(speaker string)
	CountRejected(reason string)
}

// Exchange is the pair of turns persisted for one submitted message.
type Exchange struct {
	User  store.Turn `json:"user"`
	Reply store.Turn `json:"reply"`
}

type Service struct {
	store   store.Store
	advisor Advisor
	metrics Metrics
	log     *zap.Logger
}

func NewService(s store.Store, a Advisor, m Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: s, advisor: a, metrics: m, log: log}
}

// Validate reports whether text may be submitted.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

func validUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUser
	}
	return nil
}

// Send stores the user's message, asks the advisor and stores its reply.
// Only input violations and store failures surface as errors.
func (s *Service) Send(ctx context.Context, userID, text string) (Exchange, error) {
	if err := validUser(userID); err != nil {
		s.reject(err)
		return Exchange{}, err
	}
	if err := Validate(text); err != nil {
		s.reject(err)
		return Exchange{}, err
	}

	// Only the advisor's window is replayed, so only that much is read.
	history, err := s.store.RecentTurns(ctx, userID, advisor.ContextWindow)
	if err != nil {
		return Exchange{}, fmt.Errorf("load history: %w", err)
	}

	userTurn, err := s.store.AppendTurn(ctx, userID, string(advisor.SpeakerUser), text)
	if err != nil {
		return Exchange{}, fmt.Errorf("save user turn: %w", err)
	}
	s.count(userTurn.Speaker)

	reply := s.advisor.Ask(ctx, toAdvisorTurns(history), text)

	// The user turn is already stored; its reply must be too, even if the
	// caller went away while the advisor was answering.
	replyTurn, err := s.store.AppendTurn(context.WithoutCancel(ctx), userID, string(advisor.SpeakerAssistant), reply)
	if err != nil {
		return Exchange{}, fmt.Errorf("save reply turn: %w", err)
	}
	s.count(replyTurn.Speaker)

	s.log.Debug("chat exchange stored",
		zap.String("user_id", userID),
		zap.Uint64("user_seq", userTurn.Seq),
		zap.Uint64("reply_seq", replyTurn.Seq),
		zap.Int("history", len(history)))

	return Exchange{User: userTurn, Reply: replyTurn}, nil
}

// Conversation returns the latest ConversationPageSize turns, oldest first.
func (s *Service) Conversation(ctx context.Context, userID string) ([]store.Turn, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	turns, err := s.store.RecentTurns(ctx, userID, ConversationPageSize)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return turns, nil
}

func (s *Service) Reset(ctx context.Context, userID string) error {
	if err := validUser(userID); err != nil {
		return err
	}
	if err := s.store.ClearTurns(ctx, userID); err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}
	s.log.Info("conversation reset", zap.String("user_id", userID))
	return nil
}

func (s *Service) count(speaker string) {
	if s.metrics != nil {
		s.metrics.CountTurn(speaker)
	}
}

func (s *Service) reject(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, ErrMissingUser):
		s.metrics.CountRejected("missing_user")
	case errors.Is(err, ErrEmptyMessage):
		s.metrics.CountRejected("empty")
	case errors.Is(err, ErrMessageTooLong):
		s.metrics.CountRejected("too_long")
	}
}

func toAdvisorTurns(turns []store.Turn) []advisor.Turn {
	out := make([]advisor.Turn, 0, len(turns))
	for _, t := range turns {
		out = append(out, advisor.Turn{Speaker: advisor.Speaker(t.Speaker), Text: t.Text})
	}
	return out
}
