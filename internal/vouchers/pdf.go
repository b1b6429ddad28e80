package vouchers

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"samba-tours/internal/models"
	"samba-tours/internal/utils"
)

const qrSize = 256

type Generator struct {
	QR       *QRGenerator
	FontPath string
	now      func() time.Time
}

func NewGenerator(secret, fontPath string) *Generator {
	return &Generator{QR: NewQRGenerator(secret), FontPath: fontPath, now: time.Now}
}

func (g *Generator) QRCode(b *models.Booking) ([]byte, error) {
	return g.QR.PNG(PayloadFor(b, g.now()), qrSize)
}

// PDF renders an A4 voucher. The font at FontPath must be a TrueType file.
func (g *Generator) PDF(b *models.Booking) ([]byte, error) {
	qr, err := g.QRCode(b)
	if err != nil {
		return nil, err
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont("voucher", g.FontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.SetFont("voucher", "", 20); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	pdf.SetX(40)
	pdf.SetY(40)
	pdf.Cell(nil, "Samba Tours & Travel - Booking Voucher")

	if err := pdf.SetFont("voucher", "", 12); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetY(80)
	addDetails(pdf, b)

	pdf.SetY(pdf.GetY() + 20)
	addItems(pdf, b)

	pdf.SetY(pdf.GetY() + 20)
	if err := addQRCode(pdf, qr); err != nil {
		return nil, err
	}

	pdf.SetX(40)
	pdf.SetY(780)
	pdf.Cell(nil, "Present this voucher at pickup. Questions? Reply to your confirmation email.")

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addDetails(pdf *gopdf.GoPdf, b *models.Booking) {
	info := []struct {
		Label string
		Value string
	}{
		{"Reference", b.Reference},
		{"Guest", b.CustomerName},
		{"Email", b.CustomerEmail},
		{"Status", strings.ToUpper(b.Status)},
		{"Payment", strings.ToUpper(b.PaymentStatus)},
		{"Total", b.TotalAmount.StringFixed(2) + " " + strings.ToUpper(b.Currency)},
	}
	for _, item := range info {
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(18)
	}
}

func addItems(pdf *gopdf.GoPdf, b *models.Booking) {
	for _, item := range b.Items {
		pdf.SetX(40)
		line := fmt.Sprintf("%s  |  %s  |  %d traveler(s)  |  %s",
			item.TravelDate.Format(utils.DateLayout), item.TourTitle, item.Travelers, item.Subtotal.StringFixed(2))
		pdf.Cell(nil, line)
		pdf.Br(18)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qr []byte) error {
	img, err := png.Decode(bytes.NewReader(qr))
	if err != nil {
		return fmt.Errorf("decode QR image: %w", err)
	}
	if err := pdf.ImageFrom(img, 40, pdf.GetY(), &gopdf.Rect{W: 140, H: 140}); err != nil {
		return fmt.Errorf("draw QR image: %w", err)
	}
	return nil
}
