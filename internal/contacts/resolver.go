package contacts

import (
	"context"
	"fmt"

	"contactbook/backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConfirmedContacts returns the users that are confirmed contacts of id under
// policy, each at most once and ordered by id. An empty policy selects the
// service default. The user itself is never among its contacts.
func (s *Service) ConfirmedContacts(ctx context.Context, id uint, policy Policy) ([]models.User, error) {
	if policy == "" {
		policy = s.defaultPolicy
	}
	policy, err := ParsePolicy(string(policy))
	if err != nil {
		return nil, err
	}

	// the version is read before the query: a write committed after this
	// point bumps it, and our result lands under a key nobody reads again
	var key string
	if s.cache != nil {
		version, err := s.cache.Version(ctx, versionKey(id))
		if err != nil {
			s.log.WithError(err).WithField("user_id", id).Warn("Contacts cache version read failed")
		} else {
			key = cacheKey(id, version, policy)
			users, found, err := s.cache.Get(ctx, key)
			if err != nil {
				s.log.WithError(err).WithField("key", key).Warn("Contacts cache read failed")
			} else if found {
				return users, nil
			}
		}
	}

	var users []models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, id); err != nil {
			return err
		}

		var err error
		users, err = queryConfirmed(tx, id, policy)
		return err
	})
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, users); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("Contacts cache write failed")
		}
	}
	return users, nil
}

// queryConfirmed expresses the policy as a set query over the connections
// table: a union of both directions for PolicyAccepted, an intersection for
// the other two.
func queryConfirmed(tx *gorm.DB, id uint, policy Policy) ([]models.User, error) {
	outgoing := tx.Model(&models.Connection{}).Select("target_id").Where("requester_id = ?", id)
	incoming := tx.Model(&models.Connection{}).Select("requester_id").Where("target_id = ?", id)

	if policy != PolicyBidirectional {
		outgoing = outgoing.Where("accepted = ?", true)
		incoming = incoming.Where("accepted = ?", true)
	}

	query := tx.Model(&models.User{}).Where("users.id <> ?", id)
	switch policy {
	case PolicyAccepted:
		query = query.Where(tx.Where("users.id IN (?)", outgoing).Or("users.id IN (?)", incoming))
	case PolicyMutualAccepted, PolicyBidirectional:
		query = query.Where("users.id IN (?)", outgoing).Where("users.id IN (?)", incoming)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}

	users := []models.User{}
	if err := query.Order("users.id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("resolve contacts of %d: %w", id, err)
	}
	return users, nil
}

// Requested returns the users id has sent a request to, ordered by id.
func (s *Service) Requested(ctx context.Context, id uint) ([]models.User, error) {
	return s.neighbours(ctx, id, "target_id", "requester_id")
}

// RequestedBy returns the users that sent a request to id, ordered by id.
func (s *Service) RequestedBy(ctx context.Context, id uint) ([]models.User, error) {
	return s.neighbours(ctx, id, "requester_id", "target_id")
}

func (s *Service) neighbours(ctx context.Context, id uint, selectCol, matchCol string) ([]models.User, error) {
	users := []models.User{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, id); err != nil {
			return err
		}
		sub := tx.Model(&models.Connection{}).Select(selectCol).Where(matchCol+" = ?", id)
		return tx.Where("id IN (?)", sub).Order("id").Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Resolve is the list-level form of the bidirectional policy: it concatenates
// both lists, keeps the ids that occur more than once and returns one user
// per such id, taking the first occurrence in concatenation order.
func Resolve(requested, requestedBy []models.User) []models.User {
	combined := make([]models.User, 0, len(requested)+len(requestedBy))
	combined = append(combined, requested...)
	combined = append(combined, requestedBy...)

	counts := make(map[uint]int, len(combined))
	for _, u := range combined {
		counts[u.ID]++
	}

	result := []models.User{}
	added := make(map[uint]bool)
	for _, u := range combined {
		if counts[u.ID] > 1 && !added[u.ID] {
			result = append(result, u)
			added[u.ID] = true
		}
	}
	return result
}

func versionKey(id uint) string {
	return fmt.Sprintf("contacts:%d:version", id)
}

func cacheKey(id uint, version int64, policy Policy) string {
	return fmt.Sprintf("contacts:%d:v%d:%s", id, version, policy)
}

// invalidate bumps the cache version of the given users, which retires every
// contact list cached for them.
func (s *Service) invalidate(ctx context.Context, ids ...uint) {
	if s.cache == nil {
		return
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, versionKey(id))
	}
	if err := s.cache.Bump(ctx, keys...); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"keys": keys}).Warn("Contacts cache invalidation failed")
	}
}
