package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// UmbrellaStatus is the availability state of a station's umbrellas.
type UmbrellaStatus string

const (
	UmbrellaAvailable  UmbrellaStatus = "available"
	UmbrellaRented     UmbrellaStatus = "rented"
	UmbrellaOutOfStock UmbrellaStatus = "out_of_stock"
)

func (s UmbrellaStatus) Valid() bool {
	switch s {
	case UmbrellaAvailable, UmbrellaRented, UmbrellaOutOfStock:
		return true
	}
	return false
}

func ParseUmbrellaStatus(s string) (UmbrellaStatus, error) {
	v := UmbrellaStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown umbrella status %q", s)
	}
	return v, nil
}

func (s *UmbrellaStatus) Scan(src any) error {
	return scanEnum(src, func(str string) error {
		v, err := ParseUmbrellaStatus(str)
		*s = v
		return err
	})
}

func (s UmbrellaStatus) Value() (driver.Value, error) { return string(s), nil }

// Umbrella is one rentable unit type at a station. Description doubles as
// the station label and Inventory counts the units on the shelf.
type Umbrella struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	Status      UmbrellaStatus `json:"status"`
	Inventory   int            `json:"inventory"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Station is the derived inventory view of an umbrella row.
type Station struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Location  string         `json:"location"`
	Status    UmbrellaStatus `json:"status"`
	Total     int            `json:"totalUmbrellas"`
	Rented    int            `json:"rentedUmbrellas"`
	Available int            `json:"availableUmbrellas"`
}

// LocationCount aggregates umbrella rows per location and status.
type LocationCount struct {
	Location string         `json:"location"`
	Status   UmbrellaStatus `json:"status"`
	Count    int            `json:"count"`
}
