package subscription

import (
	"bytes"
	"crypto/rand"
	"image/png"
	"math/big"

	"github.com/skip2/go-qrcode"
)

const (
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// TokenLength satisfies the minimum credential length for QR tokens.
	TokenLength = 40
)

// GenerateToken returns a random alphanumeric token. Global uniqueness is
// enforced by the database; callers retry with a fresh token on collision.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// RenderTokenPNG renders the token as a QR code PNG for re-display at the
// front desk.
func RenderTokenPNG(token string, size int) ([]byte, error) {
	qr, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
