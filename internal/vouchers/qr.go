// Package vouchers renders booking vouchers: an encrypted QR code and a
// printable PDF carrying it.
package vouchers

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skip2/go-qrcode"

	"samba-tours/internal/models"
)

var ErrInvalidCode = errors.New("invalid voucher code")

// Payload is what the QR code carries once decrypted.
type Payload struct {
	BookingID string    `json:"booking_id"`
	Reference string    `json:"reference"`
	Email     string    `json:"email"`
	Travelers int       `json:"travelers"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
	IssuedAt  time.Time `json:"issued_at"`
}

func PayloadFor(b *models.Booking, now time.Time) Payload {
	p := Payload{
		BookingID: b.ID,
		Reference: b.Reference,
		Email:     b.CustomerEmail,
		Total:     b.TotalAmount.StringFixed(2),
		Currency:  b.Currency,
		IssuedAt:  now.UTC(),
	}
	for _, item := range b.Items {
		p.Travelers += item.Travelers
	}
	return p
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret))
	return &QRGenerator{secret: hashed[:]}
}

// Code encrypts the payload into the URL-safe string the QR image encodes.
func (q *QRGenerator) Code(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

func (q *QRGenerator) PNG(p Payload, size int) ([]byte, error) {
	code, err := q.Code(p)
	if err != nil {
		return nil, fmt.Errorf("encrypt voucher: %w", err)
	}
	return qrcode.Encode(code, qrcode.Medium, size)
}

// Decode reverses Code. Used when a voucher is scanned at pickup.
func (q *QRGenerator) Decode(code string) (Payload, error) {
	raw, err := base64.URLEncoding.DecodeString(code)
	if err != nil || len(raw) <= aes.BlockSize {
		return Payload{}, ErrInvalidCode
	}
	block, err := aes.NewCipher(q.secret)
	if err != nil {
		return Payload{}, err
	}
	data := make([]byte, len(raw)-aes.BlockSize)
	cipher.NewCFBDecrypter(block, raw[:aes.BlockSize]).XORKeyStream(data, raw[aes.BlockSize:])

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil || p.BookingID == "" {
		return Payload{}, ErrInvalidCode
	}
	return p, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
