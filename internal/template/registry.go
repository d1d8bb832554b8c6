package template

import (
	"fmt"
	"sync"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
)

// MessageContent is the channel-agnostic rendered content of a notification.
type MessageContent struct {
	Subject   string
	Body      string
	ActionURL string
}

// Message is the rendered output for one recipient.
type Message struct {
	Content MessageContent
}

// RenderContext is what a factory receives once per notification render cycle.
type RenderContext struct {
	Item         models.NotificationItem
	Notification *models.Notification
	Box          *models.NotificationBox
}

// RecipientContext is the per-recipient input of a renderer.
type RecipientContext struct {
	Recipient models.NotificationBoxRecipient

	// Resolved contact info, when the recipient was a uid.
	Email string
	Phone string
	Name  string
}

// Renderer produces the message for one recipient.
type Renderer func(rc RecipientContext) (*Message, error)

// Factory builds a per-recipient renderer from the notification being sent.
// It runs once per notification per send attempt.
type Factory func(ctx RenderContext) (Renderer, error)

// Registry maps notification type tags to message factories. It is populated
// at startup and safe for concurrent lookups.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty template registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for a notification type. Registering the same type
// twice is a programming error and is rejected.
func (r *Registry) Register(notificationType string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[notificationType]; exists {
		return fmt.Errorf("template type %q already registered", notificationType)
	}
	r.factories[notificationType] = factory
	return nil
}

// Lookup returns the factory for a type, or false when none is registered.
func (r *Registry) Lookup(notificationType string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[notificationType]
	return factory, ok
}

// RenderMessage resolves the factory for a type and renders a single message.
// It returns models.ErrUnknownTemplateType for unregistered types.
func (r *Registry) RenderMessage(notificationType string, ctx RenderContext, rc RecipientContext) (*Message, error) {
	factory, ok := r.Lookup(notificationType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTemplateType, notificationType)
	}

	render, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("template factory for %q failed: %v", notificationType, err)
	}
	return render(rc)
}
