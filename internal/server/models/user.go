// Package models defines server-side data models persisted in the database.
package models

import "time"

type Role string

const (
	RoleProducer    Role = "PRODUCER"
	RoleTransporter Role = "TRANSPORTER"
	RoleBuyer       Role = "BUYER"
)

type VehicleType string

// User is keyed by email and created on the first OTP request.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Fullname  *string   `json:"fullname"`
	Phone     *string   `json:"phone"`
	Role      *Role     `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProducerInfo struct {
	WilayaID            int    `json:"wilayaId"`
	CityID              int    `json:"cityId"`
	Address             string `json:"address"`
	FarmerLicenseNumber string `json:"farmerLicenseNumber"`
}

type TransporterInfo struct {
	LicenseNumber    string      `json:"licenseNumber"`
	PlateNumber      string      `json:"plateNumber"`
	VehicleType      VehicleType `json:"vehicleType"`
	LoadCapacityInKg int         `json:"loadCapacityInKg"`
	// VehiclePhoto is an object-storage key, not a URL.
	VehiclePhoto *string `json:"vehiclePhoto"`
}

type BuyerInfo struct{}

// UserWithInfo is a user together with whichever role profiles exist.
type UserWithInfo struct {
	User
	Producer    *ProducerInfo    `json:"producer"`
	Transporter *TransporterInfo `json:"transporter"`
	Buyer       *BuyerInfo       `json:"buyer"`
}
