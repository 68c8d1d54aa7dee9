// Package contacts implements contact requests between users and resolves
// which users are confirmed contacts of each other.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contactbook/backend/internal/events"
	"contactbook/backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Cache stores resolved contact lists. Implementations must treat an empty
// list as a valid entry. Version and Bump manage per-user counters that are
// folded into the list keys, so a list computed before a write can never be
// stored under the key readers use after it.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.User, bool, error)
	Set(ctx context.Context, key string, users []models.User) error
	Version(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, keys ...string) error
}

// Service owns the users and connections tables.
type Service struct {
	db            *gorm.DB
	cache         Cache
	publisher     events.Publisher
	log           *logrus.Logger
	defaultPolicy Policy
}

type Option func(*Service)

// WithCache enables read-through caching of confirmed contacts. A nil cache
// leaves caching disabled.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDefaultPolicy sets the policy used when callers pass an empty one.
func WithDefaultPolicy(p Policy) Option {
	return func(s *Service) { s.defaultPolicy = p }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:            db,
		publisher:     events.Nop{},
		log:           logrus.StandardLogger(),
		defaultPolicy: PolicyAccepted,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) DefaultPolicy() Policy {
	return s.defaultPolicy
}

// CreateUser stores a new user.
func (s *Service) CreateUser(ctx context.Context, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	user := models.User{Name: name}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// GetUser returns the user with the given id or ErrUserNotFound.
func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return findUser(s.db.WithContext(ctx), id)
}

// ListUsers returns one page of users ordered by id, plus the total count.
func (s *Service) ListUsers(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := s.db.WithContext(ctx).Model(&models.User{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	users := []models.User{}
	if err := query.Order("id").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func findUser(tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

func (s *Service) publish(ctx context.Context, t events.Type, conn models.Connection) {
	event := events.New(t, conn)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_id":     event.ID,
			"event_type":   event.Type,
			"requester_id": conn.RequesterID,
			"target_id":    conn.TargetID,
		}).Warn("Failed to publish contact event")
	}
}
