package entity

import "time"

// StoreRecord documento de tienda/área en el almacén principal.
type StoreRecord struct {
	ID        string
	TenantID  string // ID del TenantRecord
	Name      string
	Address   string
	Phone     string
	IsDefault bool
	CreatedAt time.Time
}

// Store espejo relacional de una tienda. También es el área física donde vive el stock.
type Store struct {
	ID         string
	TenantID   string
	ExternalID string
	Name       string
	Address    string
	Phone      string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
