package models

import "fmt"

// EventType represents the type of domain event.
type EventType string

const (
	EventUserCreated EventType = "user.created"
)

// UserCreatedEvent is the payload published once per created user and consumed
// by the notification service. Field names are the wire format.
type UserCreatedEvent struct {
	UserID  string `json:"userId"`
	EmailTo string `json:"emailTo"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

const welcomeSubject = "Registration completed successfully!"

// NewUserCreatedEvent derives the welcome notification for a freshly created user.
func NewUserCreatedEvent(u User) UserCreatedEvent {
	return UserCreatedEvent{
		UserID:  u.ID,
		EmailTo: u.Email,
		Subject: welcomeSubject,
		Text:    fmt.Sprintf("%s, welcome! Thank you for signing up, enjoy all the features of our platform.", u.Name),
	}
}
