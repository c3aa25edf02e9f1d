package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	pkgkafka "github.com/405153-Masera/deviaje-users-and-auth/pkg/kafka"
)

// Kafka topic constants for user domain events.
const (
	TopicUserRegistered      = "deviaje.user.registered"
	TopicUserUpdated         = "deviaje.user.updated"
	TopicUserPasswordReset   = "deviaje.user.password_reset"
	TopicUserPasswordChanged = "deviaje.user.password_changed"
	TopicUserDeactivated     = "deviaje.user.deactivated"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceUsersAuth = "users-and-auth"

// Publisher is the event-publishing capability the services depend on.
// *Producer implements it; tests substitute a mock.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserUpdated(ctx context.Context, user *domain.User) error
	PublishUserPasswordReset(ctx context.Context, userID, email string) error
	PublishUserPasswordChanged(ctx context.Context, userID string) error
	PublishUserDeactivated(ctx context.Context, userID string) error
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

// UserUpdatedData is the payload for a user.updated event.
type UserUpdatedData struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserPasswordResetData is the payload for a user.password_reset event.
type UserPasswordResetData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// UserPasswordChangedData is the payload for a user.password_changed event.
type UserPasswordChangedData struct {
	UserID string `json:"user_id"`
}

// UserDeactivatedData is the payload for a user.deactivated event.
type UserDeactivatedData struct {
	UserID string `json:"user_id"`
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     user.Roles,
	}

	return p.publish(ctx, TopicUserRegistered, user.ID, data)
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	data := UserUpdatedData{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	return p.publish(ctx, TopicUserUpdated, user.ID, data)
}

// PublishUserPasswordReset publishes a user.password_reset event.
func (p *Producer) PublishUserPasswordReset(ctx context.Context, userID, email string) error {
	return p.publish(ctx, TopicUserPasswordReset, userID, UserPasswordResetData{UserID: userID, Email: email})
}

// PublishUserPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishUserPasswordChanged(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserPasswordChanged, userID, UserPasswordChangedData{UserID: userID})
}

// PublishUserDeactivated publishes a user.deactivated event.
func (p *Producer) PublishUserDeactivated(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserDeactivated, userID, UserDeactivatedData{UserID: userID})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeUser, SourceUsersAuth, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
