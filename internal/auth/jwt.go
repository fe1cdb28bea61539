package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audience é o público dos tokens de acesso do SGC.
const Audience = "sgc"

// Claims representa o usuário autenticado: título de eleitor no subject,
// unidade de atuação e perfil escolhido no login.
type Claims struct {
	Unidade int64  `json:"unidade"`
	Perfil  string `json:"perfil"`
	jwt.RegisteredClaims
}

// JWTManager encapsula geração e validação de tokens.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL}
}

// GenerateAccessToken cria um JWT HS256 para o usuário na unidade e perfil
// informados. Devolve o token e seu identificador.
func (m *JWTManager) GenerateAccessToken(titulo string, unidade int64, perfil string) (string, string, error) {
	titulo = strings.TrimSpace(titulo)
	if titulo == "" || unidade <= 0 {
		return "", "", errors.New("usuário e unidade são obrigatórios")
	}

	now := time.Now().UTC()
	jti := uuid.NewString()

	claims := Claims{
		Unidade: unidade,
		Perfil:  strings.ToUpper(strings.TrimSpace(perfil)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   titulo,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", "", err
	}

	return signed, jti, nil
}

// ParseAndValidate verifica assinatura, expiração e audience.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("token inválido")
	}
	if claims.Subject == "" || claims.Unidade <= 0 {
		return nil, errors.New("token sem usuário ou unidade")
	}

	return claims, nil
}
