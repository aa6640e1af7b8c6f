package api

import (
	"time"

	"keymint/pkg/contracts"
)

// CreatedKey is one minted serial with its issuance token.
type CreatedKey struct {
	SerialKey string `json:"serialKey"`
	Token     string `json:"token"`
}

// IssueResponse is returned by a successful issuance request.
type IssueResponse struct {
	CustomerName string       `json:"customerName"`
	Created      []CreatedKey `json:"created"`
}

// ActivateResponse is returned by a successful activation request.
type ActivateResponse struct {
	Success      bool   `json:"success"`
	SerialKey    string `json:"serialKey"`
	HWID         string `json:"hwid"`
	CustomerName string `json:"customerName"`
	Token        string `json:"token"`
}

// LicenseView is the public projection of a stored license record.
type LicenseView struct {
	SerialKey    string     `json:"serialKey"`
	CustomerName string     `json:"customerName"`
	HWID         *string    `json:"hwid"`
	Active       bool       `json:"active"`
	State        string     `json:"state"`
	CreatedAt    time.Time  `json:"createdAt"`
	ActivatedAt  *time.Time `json:"activatedAt"`
}

// ListResponse is returned by the license listing endpoint.
type ListResponse struct {
	Count    int           `json:"count"`
	Licenses []LicenseView `json:"licenses"`
}

// AdminLoginResponse is returned by a successful admin login.
type AdminLoginResponse struct {
	Token string `json:"token"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string                `json:"status"`
	Version contracts.VersionInfo `json:"version"`
	Time    time.Time             `json:"time"`
}

// DeleteResponse is returned after a license is removed.
type DeleteResponse struct {
	Deleted   bool   `json:"deleted"`
	SerialKey string `json:"serialKey"`
}
