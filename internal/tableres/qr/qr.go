package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"github.com/skip2/go-qrcode"

	"ms-library/internal/models"
)

// confirmationPayload is what the QR encodes. The desk scanner decrypts
// it to verify the reservation without a database round trip.
type confirmationPayload struct {
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	TableID       string    `json:"table_id"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// GenerateEncryptedQR renders the reservation confirmation as a PNG QR
// code whose payload is AES-encrypted with the service secret.
func (q *QRGenerator) GenerateEncryptedQR(res models.TableReservation) ([]byte, error) {
	data, err := json.Marshal(confirmationPayload{
		ReservationID: res.ID,
		UserID:        res.UserID,
		TableID:       res.TableID,
		StartsAt:      res.StartsAt,
		EndsAt:        res.EndsAt,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, q.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
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
