package models

import "time"

// Connection is a directed contact request from Requester to Target.
// The primary key is a composite of (RequesterID, TargetID), so there is at
// most one request per ordered pair.
type Connection struct {
	RequesterID uint `gorm:"primaryKey;autoIncrement:false"`
	TargetID    uint `gorm:"primaryKey;autoIncrement:false;index"`
	Accepted    bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Requester User `gorm:"foreignKey:RequesterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Target    User `gorm:"foreignKey:TargetID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// TableName pins the table name to "connections".
func (Connection) TableName() string {
	return "connections"
}

// Other returns the id on the opposite end of the edge from userID.
func (c Connection) Other(userID uint) uint {
	if c.RequesterID == userID {
		return c.TargetID
	}
	return c.RequesterID
}
