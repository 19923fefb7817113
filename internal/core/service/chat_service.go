package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/api/metrics"
	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

const (
	maxMessageRunes = 2000
	maxSenderRunes  = 100
)

// ChatService is the per-incident coordination log. Persistence is best
// effort: when the log store is down, messages are still delivered live and
// flagged as not persisted.
type ChatService struct {
	incidents ports.IncidentRepository
	messages  ports.MessageRepository
	publisher ports.RoomPublisher
	locks     *keyedMutex
	timeout   time.Duration
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

func NewChatService(
	incidents ports.IncidentRepository,
	messages ports.MessageRepository,
	publisher ports.RoomPublisher,
	timeout time.Duration,
	logger zerolog.Logger,
) *ChatService {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &ChatService{
		incidents: incidents,
		messages:  messages,
		publisher: publisher,
		locks:     newKeyedMutex(),
		timeout:   timeout,
		logger:    logger.With().Str("component", "chat").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Send appends a message to the incident's log and publishes it to the
// incident room. Append and publish happen under the incident's lock, so room
// members observe messages in log order.
func (s *ChatService) Send(ctx context.Context, incidentID, senderName, text string) (*domain.Message, error) {
	senderName = strings.TrimSpace(senderName)
	text = strings.TrimSpace(text)
	if text == "" || senderName == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageRunes || utf8.RuneCountInString(senderName) > maxSenderRunes {
		return nil, fmt.Errorf("%w: message too long", domain.ErrInvalidInput)
	}

	unlock := s.locks.Lock(incidentID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := domain.Message{
		ID:         s.newID(),
		IncidentID: incidentID,
		SenderName: senderName,
		Text:       text,
		SentAt:     s.now(),
	}

	storeUp := true
	incident, err := s.incidents.FindByID(ctx, incidentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("chat: %w", err)
	case err != nil:
		storeUp = false
		s.degraded(incidentID, err)
	case incident.IsResolved():
		return nil, fmt.Errorf("chat: %w", domain.ErrIncidentResolved)
	}

	if storeUp {
		err := s.messages.Append(ctx, incidentID, msg)
		switch {
		case err == nil:
			msg.Persisted = true
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
			return nil, fmt.Errorf("chat: %w", err)
		default:
			s.degraded(incidentID, err)
		}
	}

	if msg.Persisted {
		metrics.ChatMessagesTotal.WithLabelValues("persisted").Inc()
	} else {
		metrics.ChatMessagesTotal.WithLabelValues("degraded").Inc()
	}

	s.publisher.Publish(domain.IncidentRoom(incidentID), domain.ChatMessageEvent(msg))
	return &msg, nil
}

// History returns the incident's full log in append order.
func (s *ChatService) History(ctx context.Context, incidentID string) ([]domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msgs, err := s.messages.History(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	for i := range msgs {
		msgs[i].IncidentID = incidentID
		msgs[i].Persisted = true
	}
	return msgs, nil
}

func (s *ChatService) degraded(incidentID string, err error) {
	s.logger.Warn().Err(err).Str("incident_id", incidentID).Msg("coordination log unavailable, delivering live only")
}
