package types

import "github.com/google/uuid"

// Address is a labelled shipping/billing address stored as JSONB.
type Address struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Country    string    `json:"country"`
	PostalCode string    `json:"postal_code"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
}

// AddressList is the JSONB array of addresses carried on a user document.
type AddressList []Address
