// Package jwt firma y verifica los tokens de sesión de la API (HS256).
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret     = errors.New("jwt: secret vacío")
	ErrInvalidToken = errors.New("jwt: token inválido")
)

// leeway tolera relojes desfasados entre estaciones de planta.
const leeway = 30 * time.Second

// Subject identidad que viaja en el token. Username se usa como operator/PIC
// por defecto sin consultar la DB.
type Subject struct {
	UserID   string
	Username string
	Role     string // admin | operator | qc
}

type claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Issuer emite y valida tokens para un secret e issuer fijos.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewIssuer valida el secret y arma el parser con método, issuer y leeway fijos.
func NewIssuer(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt: ttl debe ser positivo, recibido %s", ttl)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		parser: jwt.NewParser(opts...),
		now:    time.Now,
	}, nil
}

// WithClock fija el reloj de emisión (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// TTL duración de los tokens emitidos.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Sign emite un token para s. Devuelve también el vencimiento.
func (i *Issuer) Sign(s Subject) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: s.Username,
		Role:     s.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: firmar: %w", err)
	}
	return signed, exp, nil
}

// Verify valida firma, vencimiento e issuer. Cualquier rechazo envuelve ErrInvalidToken.
func (i *Issuer) Verify(token string) (Subject, error) {
	var c claims
	_, err := i.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return Subject{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Subject{}, fmt.Errorf("%w: sin subject", ErrInvalidToken)
	}
	return Subject{UserID: c.Subject, Username: c.Username, Role: c.Role}, nil
}

// Expired indica si Verify rechazó el token solo por vencimiento.
func Expired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
