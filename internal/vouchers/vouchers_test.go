package vouchers

import (
	"bytes"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samba-tours/internal/models"
)

func testBooking() *models.Booking {
	return &models.Booking{
		ID:            "b-1",
		Reference:     "SMB-ABCD2345",
		CustomerName:  "Amara N",
		CustomerEmail: "amara@example.com",
		Status:        models.BookingStatusConfirmed,
		PaymentStatus: models.PaymentStatusPaid,
		TotalAmount:   decimal.RequireFromString("1300.00"),
		Currency:      "usd",
		Items: []models.BookingItem{
			{TourTitle: "Murchison Falls Safari", Travelers: 2, Subtotal: decimal.NewFromInt(1300), TravelDate: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestCodeRoundTrip(t *testing.T) {
	q := NewQRGenerator("secret")
	p := PayloadFor(testBooking(), time.Now())
	assert.Equal(t, 2, p.Travelers)
	assert.Equal(t, "1300.00", p.Total)

	code, err := q.Code(p)
	require.NoError(t, err)
	decoded, err := q.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, "SMB-ABCD2345", decoded.Reference)

	_, err = NewQRGenerator("other").Decode(code)
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = q.Decode("not-base64!")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestQRCodeIsPNG(t *testing.T) {
	g := NewGenerator("secret", "")
	img, err := g.QRCode(testBooking())
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(img))
	assert.NoError(t, err)
}

func TestPDF(t *testing.T) {
	font := "../../fonts/DejaVuSans.ttf"
	if _, err := os.Stat(font); err != nil {
		t.Skip("voucher font not available")
	}
	g := NewGenerator("secret", font)
	out, err := g.PDF(testBooking())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFMissingFont(t *testing.T) {
	g := NewGenerator("secret", "/nonexistent/font.ttf")
	_, err := g.PDF(testBooking())
	assert.Error(t, err)
}
