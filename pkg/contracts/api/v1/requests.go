// Package api contains API contract definitions for the keymint license
// server. Version v1 represents the current stable API version.
package api

// License API Requests

// IssueRequest represents an admin request to mint one or more serial keys
// for a customer.
type IssueRequest struct {
	CustomerName string `json:"customerName" validate:"required,min=1,max=200"`
	Quantity     int    `json:"quantity" validate:"omitempty,min=1"`
}

// ActivateRequest represents a client request to bind a serial key to a
// machine.
type ActivateRequest struct {
	SerialKey    string `json:"serialKey" validate:"required"`
	HWID         string `json:"hwid" validate:"required"`
	CustomerName string `json:"customerName" validate:"required"`
}

// EditRequest represents an admin request to overwrite fields of an issued
// license. Empty fields are left unchanged.
type EditRequest struct {
	CustomerName string `json:"customerName" validate:"omitempty,min=1,max=200"`
	HWID         string `json:"hwid"`
}

// AdminLoginRequest represents a request for an admin session token.
type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}
