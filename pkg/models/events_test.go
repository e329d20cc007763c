package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeConstants(t *testing.T) {
	assert.Equal(t, "user.created", string(EventUserCreated))
}

func TestNewUserCreatedEvent(t *testing.T) {
	event := NewUserCreatedEvent(User{ID: "user-789", Name: "Alice", Email: "alice@example.com"})

	assert.Equal(t, "user-789", event.UserID)
	assert.Equal(t, "alice@example.com", event.EmailTo)
	assert.Equal(t, welcomeSubject, event.Subject)
	assert.Contains(t, event.Text, "Alice")
}

func TestUserCreatedEventWireFormat(t *testing.T) {
	event := UserCreatedEvent{
		UserID:  "user-789",
		EmailTo: "test@example.com",
		Subject: "Hi",
		Text:    "Body",
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Equal(t, `{"userId":"user-789","emailTo":"test@example.com","subject":"Hi","text":"Body"}`, string(data))
}
