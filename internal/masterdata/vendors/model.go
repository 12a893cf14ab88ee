package vendors

import (
	"time"
)

// Vendor is a party orders are placed for.
type Vendor struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	PhoneNumber  string    `json:"phone_number"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
}

type VendorForm struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	PhoneNumber  string `json:"phone_number"`
	Address      string `json:"address"`
}

func (f VendorForm) toVendor() Vendor {
	return Vendor{Name: f.Name, ContactEmail: f.ContactEmail, PhoneNumber: f.PhoneNumber, Address: f.Address}
}
