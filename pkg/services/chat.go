package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/chat"
	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// MessageEvent is the event name for chat messages.
const MessageEvent = "message"

type ChatService struct {
	store MessageStore
	hub   Broadcaster
	log   *logrus.Entry
}

func NewChatService(store MessageStore, hub Broadcaster) *ChatService {
	return &ChatService{
		store: store,
		hub:   hub,
		log:   logrus.WithField("component", "chat"),
	}
}

// Send stores the message and then publishes it. Delivery to listeners is
// best effort; the stored log is the record.
func (s *ChatService) Send(ctx context.Context, req *models.CreateMessageRequest) Result[*models.Message] {
	ctx, span := tracer.Start(ctx, "ChatService.Send")
	defer span.End()

	message := req.ToMessage()
	if err := message.Validate(); err != nil {
		f := &Failure{Kind: ValidationFailed, Message: err.Error()}
		record(span, f)
		return FailWith[*models.Message](f)
	}

	storeCtx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()
	if err := s.store.Append(storeCtx, message); err != nil {
		f := classify(err, "message not found")
		record(span, f)
		return FailWith[*models.Message](f)
	}

	if err := s.hub.Publish(ctx, chat.TopicChat, MessageEvent, message); err != nil {
		s.log.WithError(err).Warn("chat message not published")
	}
	return Ok(message)
}

func (s *ChatService) History(ctx context.Context) Result[[]models.Message] {
	ctx, span := tracer.Start(ctx, "ChatService.History")
	defer span.End()

	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	messages, err := s.store.List(ctx)
	if err != nil {
		f := classify(err, "message not found")
		record(span, f)
		return FailWith[[]models.Message](f)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return Ok(messages)
}

// ChatSession is one listener: the log as it was when it joined, then every
// message sent after. Messages is closed once the session is closed.
type ChatSession struct {
	ID       string
	History  []models.Message
	Messages <-chan models.Message

	sub  *chat.Subscription
	done chan struct{}
	once sync.Once
}

func (s *ChatSession) Close() {
	s.once.Do(func() {
		close(s.done)
		s.sub.Close()
	})
}

// Subscribe registers the listener before reading the log so nothing sent
// in between is lost. Messages already in the snapshot are not repeated.
func (s *ChatService) Subscribe(ctx context.Context, sessionID string) (*ChatSession, *Failure) {
	sub := s.hub.Subscribe(chat.TopicChat, sessionID)

	history := s.History(ctx)
	if history.Failed() {
		sub.Close()
		return nil, history.Err
	}

	seen := make(map[bson.ObjectID]struct{}, len(history.Value))
	for _, m := range history.Value {
		seen[m.ID] = struct{}{}
	}

	out := make(chan models.Message)
	session := &ChatSession{
		ID:       sessionID,
		History:  history.Value,
		Messages: out,
		sub:      sub,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(out)
		for event := range sub.C {
			var m models.Message
			if err := json.Unmarshal(event.Data, &m); err != nil {
				s.log.WithError(err).WithField("session", sessionID).Warn("undecodable chat event")
				continue
			}
			if _, ok := seen[m.ID]; ok {
				delete(seen, m.ID)
				continue
			}
			select {
			case out <- m:
			case <-session.done:
				return
			}
		}
	}()
	return session, nil
}
