package models

import "gorm.io/gorm"

// User is a node of the contact graph. Users are created once and never
// mutated afterwards.
type User struct {
	gorm.Model
	Name string `gorm:"size:255;not null"`
}
