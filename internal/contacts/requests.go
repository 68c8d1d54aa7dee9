package contacts

import (
	"context"
	"errors"
	"fmt"

	"contactbook/backend/internal/events"
	"contactbook/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestContact records that requesterID asked targetID to become a
// contact. The new connection starts unaccepted. Requesting the same ordered
// pair twice fails with ErrConflict.
func (s *Service) RequestContact(ctx context.Context, requesterID, targetID uint) (*models.Connection, error) {
	if requesterID == targetID {
		return nil, ErrSelfRequest
	}

	conn := models.Connection{RequesterID: requesterID, TargetID: targetID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []uint{requesterID, targetID} {
			if _, err := findUser(tx, id); err != nil {
				return err
			}
		}

		var existing int64
		if err := tx.Model(&models.Connection{}).
			Where("requester_id = ? AND target_id = ?", requesterID, targetID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: %d -> %d", ErrConflict, requesterID, targetID)
		}

		if err := tx.Omit(clause.Associations).Create(&conn).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %d -> %d", ErrConflict, requesterID, targetID)
			}
			return fmt.Errorf("create contact request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("requester_id", requesterID).WithField("target_id", targetID).Info("Contact requested")

	s.invalidate(ctx, requesterID, targetID)
	s.publish(ctx, events.ContactRequested, conn)
	return &conn, nil
}

// AcceptRequest marks the request requesterID -> targetID as accepted. The
// reciprocal request, if any, is left as it is. Accepting an accepted
// request is a no-op.
func (s *Service) AcceptRequest(ctx context.Context, requesterID, targetID uint) (*models.Connection, error) {
	var conn models.Connection
	changed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("requester_id = ? AND target_id = ?", requesterID, targetID).First(&conn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d -> %d", ErrConnectionNotFound, requesterID, targetID)
		}
		if err != nil {
			return fmt.Errorf("find contact request: %w", err)
		}

		if conn.Accepted {
			return nil
		}

		if err := tx.Model(&conn).Update("accepted", true).Error; err != nil {
			return fmt.Errorf("accept contact request: %w", err)
		}
		conn.Accepted = true
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.WithField("requester_id", requesterID).WithField("target_id", targetID).Info("Contact request accepted")
		s.invalidate(ctx, requesterID, targetID)
		s.publish(ctx, events.ContactAccepted, conn)
	}
	return &conn, nil
}

// Request returns the request requesterID -> targetID or ErrConnectionNotFound.
func (s *Service) Request(ctx context.Context, requesterID, targetID uint) (*models.Connection, error) {
	var conn models.Connection
	err := s.db.WithContext(ctx).Where("requester_id = ? AND target_id = ?", requesterID, targetID).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d -> %d", ErrConnectionNotFound, requesterID, targetID)
	}
	if err != nil {
		return nil, fmt.Errorf("find contact request: %w", err)
	}
	return &conn, nil
}

// Connections lists the raw requests touching id, filtered by direction and,
// when accepted is non-nil, by acceptance. Both users are preloaded.
func (s *Service) Connections(ctx context.Context, id uint, direction Direction, accepted *bool) ([]models.Connection, error) {
	conns := []models.Connection{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, id); err != nil {
			return err
		}

		query := tx.Preload("Requester").Preload("Target")
		switch direction {
		case DirectionIncoming:
			query = query.Where("target_id = ?", id)
		case DirectionOutgoing:
			query = query.Where("requester_id = ?", id)
		case DirectionAny:
			query = query.Where("requester_id = ? OR target_id = ?", id, id)
		default:
			return fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
		}

		if accepted != nil {
			query = query.Where("accepted = ?", *accepted)
		}

		return query.Order("created_at").Order("requester_id").Order("target_id").Find(&conns).Error
	})
	if err != nil {
		return nil, err
	}
	return conns, nil
}
