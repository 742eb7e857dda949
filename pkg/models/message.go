package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message is one line of the chat log.
type Message struct {
	ID        bson.ObjectID `json:"_id" bson:"_id,omitempty"`
	User      string        `json:"user" bson:"user" validate:"required"`
	Message   string        `json:"message" bson:"message" validate:"required"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

type CreateMessageRequest struct {
	User    string `json:"user" form:"user"`
	Message string `json:"message" form:"message"`
}

func (req *CreateMessageRequest) ToMessage() *Message {
	return &Message{
		ID:        bson.NewObjectID(),
		User:      strings.TrimSpace(req.User),
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: time.Now().UTC(),
	}
}

func (m *Message) Validate() error {
	return describe(validate.Struct(m))
}
