package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Subscribers pick individual carparks and get notified when a full one
// gains free lots again.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	CarParks []*CarPark `gorm:"many2many:subscription_car_park_mapping;"`
}
