// Package seed loads the fixed demo users and contact requests.
package seed

import (
	"context"
	"fmt"

	"contactbook/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Names are the demo users, in insertion order. On an empty database they get
// ids 1 to 6.
var Names = []string{"Bob", "Ben", "Alfred", "Theo", "Fizzz", "Buzz"}

// Edge is a request between two demo users, by index into Names.
type Edge struct {
	From, To int
	Accepted bool
}

// Edges are the demo contact requests: Bob asks Fizzz, and Bob has requests
// in both directions with Ben, Alfred and Theo. Nothing is accepted.
var Edges = []Edge{
	{From: 0, To: 4},
	{From: 0, To: 1},
	{From: 1, To: 0},
	{From: 2, To: 0},
	{From: 0, To: 2},
	{From: 3, To: 0},
	{From: 0, To: 3},
}

// Load inserts the demo users and requests in one transaction. It can be run
// any number of times: users are matched by name and existing requests are
// left untouched. It returns the demo users in the order of Names.
func Load(ctx context.Context, db *gorm.DB) ([]models.User, error) {
	users := make([]models.User, len(Names))

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, name := range Names {
			if err := tx.Where(models.User{Name: name}).Order("id").FirstOrCreate(&users[i]).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", name, err)
			}
		}

		for _, e := range Edges {
			conn := models.Connection{
				RequesterID: users[e.From].ID,
				TargetID:    users[e.To].ID,
				Accepted:    e.Accepted,
			}
			err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&conn).Error
			if err != nil {
				return fmt.Errorf("seed request %s -> %s: %w", Names[e.From], Names[e.To], err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
