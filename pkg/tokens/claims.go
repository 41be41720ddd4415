package tokens

import "github.com/golang-jwt/jwt/v5"

// Principal is the identity a bearer token is minted for. Email becomes the subject.
type Principal struct {
	UserID uint
	Email  string
	Name   string
	Roles  []string
}

type Claims struct {
	Roles  []string `json:"roles"`
	UserID uint     `json:"userId"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}
