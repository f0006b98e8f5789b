package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"service-booking/types"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// The identity provider is external: this module only verifies tokens it
// issued, using its published RSA public key. Token issuance and refresh
// never happen here.

var (
	publicKeyMu     sync.Mutex
	cachedPublicKey *rsa.PublicKey
)

// FetchPublicKey fetches the identity provider's public key from the given URL.
func FetchPublicKey(url string) (*rsa.PublicKey, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	keyResponse := struct {
		Key string `json:"key"`
	}{}

	if err := json.Unmarshal(body, &keyResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal public key response: %w", err)
	}

	block, _ := pem.Decode([]byte(keyResponse.Key))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("failed to decode PEM block containing public key")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPubKey, ok := pubKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}

	return rsaPubKey, nil
}

func identityPublicKey() (*rsa.PublicKey, error) {
	publicKeyMu.Lock()
	defer publicKeyMu.Unlock()

	if cachedPublicKey != nil {
		return cachedPublicKey, nil
	}

	key, err := FetchPublicKey(os.Getenv("IDENTITY_PUBLIC_KEY_URL"))
	if err != nil {
		return nil, err
	}
	cachedPublicKey = key
	return key, nil
}

// VerifyJWT verifies a bearer token against the identity provider's RSA
// public key and returns its claims.
func VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	publicKey, err := identityPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid JWT token")
	}

	return claims, nil
}

// RequireAuthentication verifies the Authorization bearer token and stores
// the verified claims and subject id on the request context. Authorization
// beyond "who is this" is decided per record by the services.
func RequireAuthentication() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Message: "Missing bearer token",
				Status:  fiber.StatusUnauthorized,
				Data:    nil,
			})
		}

		claims, err := VerifyJWT(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Message: "Invalid or expired token",
				Status:  fiber.StatusUnauthorized,
				Data:    nil,
			})
		}

		subject, _ := claims["sub"].(string)
		if subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
				Message: "Token missing subject",
				Status:  fiber.StatusUnauthorized,
				Data:    nil,
			})
		}

		c.Locals("user", claims)
		c.Locals("subject", subject)
		return c.Next()
	}
}

// SubjectID returns the verified identity subject for the request.
func SubjectID(c *fiber.Ctx) (string, bool) {
	subject, ok := c.Locals("subject").(string)
	return subject, ok && subject != ""
}
