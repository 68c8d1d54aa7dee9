// Package testutil provides throwaway databases and fixtures for tests.
package testutil

import (
	"contactbook/backend/internal/database"
	"contactbook/backend/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TB is the subset of testing.TB used here; GinkgoT() satisfies it too.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	Cleanup(func())
}

// NewDB returns a migrated in-memory sqlite database that is closed when the
// test ends.
func NewDB(t TB) *gorm.DB {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	// the pool is capped at one connection for sqlite, so every handle
	// sees the same private in-memory database
	db, err := database.Connect("sqlite://:memory:", log)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewUser inserts a user. An empty name gets a fake one.
func NewUser(t TB, db *gorm.DB, name string) models.User {
	t.Helper()

	if name == "" {
		name = gofakeit.FirstName()
	}
	user := models.User{Name: name}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %q: %v", name, err)
	}
	return user
}

// NewConnection inserts a request requester -> target.
func NewConnection(t TB, db *gorm.DB, requester, target uint, accepted bool) models.Connection {
	t.Helper()

	conn := models.Connection{RequesterID: requester, TargetID: target, Accepted: accepted}
	if err := db.Omit("Requester", "Target").Create(&conn).Error; err != nil {
		t.Fatalf("create connection %d -> %d: %v", requester, target, err)
	}
	return conn
}

// IDs returns the ids of users in order.
func IDs(users []models.User) []uint {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
