package token

import (
	jwtgo "github.com/golang-jwt/jwt/v5"
)

// Token types discriminate the claim variants carried by a signed token.
const (
	TypeActivation = "activation"
	TypeIssuance   = "issuance"
	TypeAdmin      = "admin"
)

// RoleAdmin is the role marker carried by admin session tokens.
const RoleAdmin = "admin"

// Claims is the tagged union of claim variants a token can carry.
// Verify returns exactly one of ActivationClaims, IssuanceClaims or AdminClaims.
type Claims interface {
	TokenType() string
}

// ActivationClaims is the credential handed to a client after a successful
// activation. It binds the serial to the machine that activated it.
type ActivationClaims struct {
	SerialKey    string
	HWID         string
	CustomerName string
}

func (ActivationClaims) TokenType() string { return TypeActivation }

// IssuanceClaims is the long-lived credential handed out together with a
// freshly minted serial, before any machine has activated it.
type IssuanceClaims struct {
	SerialKey    string
	CustomerName string
}

func (IssuanceClaims) TokenType() string { return TypeIssuance }

// AdminClaims is the short-lived admin session credential.
type AdminClaims struct {
	Role string
}

func (AdminClaims) TokenType() string { return TypeAdmin }

// IsAdmin reports whether the claims carry the admin role marker.
func (c AdminClaims) IsAdmin() bool { return c.Role == RoleAdmin }

func (c ActivationClaims) mapClaims() jwtgo.MapClaims {
	return jwtgo.MapClaims{
		"serial_key":    c.SerialKey,
		"hwid":          c.HWID,
		"customer_name": c.CustomerName,
	}
}

func (c IssuanceClaims) mapClaims() jwtgo.MapClaims {
	return jwtgo.MapClaims{
		"serial_key":    c.SerialKey,
		"customer_name": c.CustomerName,
	}
}

func (c AdminClaims) mapClaims() jwtgo.MapClaims {
	return jwtgo.MapClaims{
		"role": c.Role,
	}
}

func claimString(values jwtgo.MapClaims, key string) string {
	v, _ := values[key].(string)
	return v
}

func claimsFromJWT(values jwtgo.MapClaims) (Claims, error) {
	switch claimString(values, "token_type") {
	case TypeActivation:
		return ActivationClaims{
			SerialKey:    claimString(values, "serial_key"),
			HWID:         claimString(values, "hwid"),
			CustomerName: claimString(values, "customer_name"),
		}, nil
	case TypeIssuance:
		return IssuanceClaims{
			SerialKey:    claimString(values, "serial_key"),
			CustomerName: claimString(values, "customer_name"),
		}, nil
	case TypeAdmin:
		return AdminClaims{
			Role: claimString(values, "role"),
		}, nil
	default:
		return nil, ErrUnknownTokenType
	}
}
