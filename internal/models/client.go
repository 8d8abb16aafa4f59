package models

// Client is a customer the owner bills.
type Client struct {
	Base
	Owned
	Name    string `gorm:"not null" json:"name" validate:"required,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
	Notes   string `json:"notes,omitempty" validate:"max=2000"`
}
