package suppliers

import "time"

// Address is the optional postal address of a supplier.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	District   string `json:"district"`
}

// IsEmpty reports whether no address field is filled.
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.PostalCode == "" && a.District == ""
}

// Supplier is a vendor products are bought from.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   *Address  `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SupplierRequest is the create payload and, for updates, the full
// replacement of the supplier fields. Address fields left empty on update
// keep their stored values.
type SupplierRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	CNPJ       string `json:"cnpj" validate:"omitempty,max=255"`
	Email      string `json:"email" validate:"omitempty,email,max=255"`
	Phone      string `json:"phone" validate:"omitempty,numeric,max=20"`
	Street     string `json:"street" validate:"max=255"`
	City       string `json:"city" validate:"max=255"`
	State      string `json:"state" validate:"max=255"`
	PostalCode string `json:"postal_code" validate:"max=255"`
	District   string `json:"district" validate:"max=255"`
}

func (r SupplierRequest) address() Address {
	return Address{Street: r.Street, City: r.City, State: r.State, PostalCode: r.PostalCode, District: r.District}
}
