package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CarPark is one catalog entry. The catalog is seeded from the HDB static
// carpark information dataset; the refresh cycle only ever touches
// AvailableLots and UpdatedAt. CarParkNo is the external id used to match
// feed records and is unique by data-source convention.
type CarPark struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CarParkNo string    `gorm:"uniqueIndex;size:32;not null" json:"carParkNo"`
	Address   string    `gorm:"size:256" json:"address"`

	// WGS84 position, persisted as plain columns so nearest-neighbor
	// ordering works on any backend.
	Latitude  float64 `gorm:"index" json:"latitude"`
	Longitude float64 `gorm:"index" json:"longitude"`

	// Static attributes from the seed dataset.
	CarParkType      string `gorm:"size:64" json:"carParkType"`
	ParkingSystem    string `gorm:"size:64" json:"parkingSystem"`
	ShortTermParking string `gorm:"size:64" json:"shortTermParking"`
	FreeParking      string `gorm:"size:64" json:"freeParking"`
	NightParking     string `gorm:"size:32" json:"nightParking"`

	TotalLots     int `json:"totalLots"`
	AvailableLots int `gorm:"not null" json:"availableLots"`

	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate assigns the catalog primary key.
func (c *CarPark) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
