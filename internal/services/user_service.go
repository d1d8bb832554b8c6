package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// UserStore persists notification users.
type UserStore interface {
	UserResolver
	CreateUser(ctx context.Context, user *models.NotificationUser) (*models.NotificationUser, error)
	GetUserByEmail(ctx context.Context, email string) (*models.NotificationUser, error)
	UpdateUser(ctx context.Context, user *models.NotificationUser) error
}

// UserService encapsulates the business logic for user operations.
type UserService struct {
	repo UserStore
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo UserStore) *UserService {
	return &UserService{
		repo: repo,
	}
}

// RegisterUser registers a new user after hashing their password.
func (s *UserService) RegisterUser(ctx context.Context, user *models.NotificationUser, password string) (*models.NotificationUser, error) {
	logrus.Info("Registering new user")

	if user.Email == "" || user.Username == "" || password == "" {
		logrus.Warn("Missing required fields during registration")
		return nil, fmt.Errorf("missing required user fields")
	}

	if !emailRegex.MatchString(user.Email) {
		logrus.WithField("email", user.Email).Warn("Invalid email format during registration")
		return nil, fmt.Errorf("invalid email format")
	}

	// Check if the email is already registered
	existingUser, _ := s.repo.GetUserByEmail(ctx, user.Email)
	if existingUser != nil {
		logrus.WithField("email", user.Email).Warn("Email already in use")
		return nil, fmt.Errorf("email already in use")
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("Password hashing failed")
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user.UID = uuid.NewString()
	user.HashedPassword = string(hashedPwd)
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	if user.Role == "" {
		user.Role = "user"
	}

	createdUser, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		logrus.WithError(err).Error("User registration failed")
		return nil, fmt.Errorf("failed to register user: %v", err)
	}

	return createdUser, nil
}

// AuthenticateUser checks login credentials and returns the matching user.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (*models.NotificationUser, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		logrus.WithField("email", email).Warn("Invalid password attempt")
		return nil, fmt.Errorf("invalid credentials")
	}
	return user, nil
}

// ResolveUser exposes uid resolution for collaborators that only hold the service.
func (s *UserService) ResolveUser(ctx context.Context, uid string) (*models.NotificationUser, error) {
	return s.repo.ResolveUser(ctx, uid)
}

// UpdateContactInfo updates a user's email/phone used by recipient expansion.
func (s *UserService) UpdateContactInfo(ctx context.Context, uid, email, phone string) error {
	user, err := s.repo.ResolveUser(ctx, uid)
	if err != nil {
		return err
	}
	if email != "" {
		if !emailRegex.MatchString(email) {
			return fmt.Errorf("invalid email format")
		}
		user.Email = email
	}
	if phone != "" {
		user.Phone = phone
	}
	return s.repo.UpdateUser(ctx, user)
}
