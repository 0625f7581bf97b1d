package voucher

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"trailhead/models"
)

const qrSize = 256

// Render lays out a one-page A4 voucher for b with payload encoded as a QR code.
func Render(b *models.BookingDetails, payload string, issued time.Time) ([]byte, error) {
	qrPNG, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 15, "Booking Voucher", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	title := "Tour package"
	if b.Package != nil {
		title = b.Package.Title
	}
	lines := []string{
		"Package: " + title,
		"Booking: " + b.ID.Hex(),
		"Travel dates: " + b.StartDate.Format("02 Jan 2006") + " - " + b.EndDate.Format("02 Jan 2006"),
		fmt.Sprintf("Travellers: %d", b.NumberOfPeople),
		fmt.Sprintf("Total price: %.2f", b.TotalPrice),
		"Status: " + string(b.Status),
	}
	if b.Guide != nil {
		lines = append(lines, "Guide: "+b.Guide.Name)
	}
	if b.Hotel != nil {
		lines = append(lines, "Hotel: "+b.Hotel.Name)
	}
	if b.SpecialRequirements != "" {
		lines = append(lines, "Special requirements: "+b.SpecialRequirements)
	}

	pdf.SetFont("Arial", "", 12)
	for _, line := range lines {
		pdf.MultiCell(110, 8, tr(line), "", "L", false)
	}

	imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imgOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 140, 40, 50, 50, false, imgOpts, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 10)
	footer := "Present this voucher at check-in. Issued " + issued.UTC().Format("02 Jan 2006 15:04") + " UTC."
	pdf.CellFormat(0, 10, footer, "T", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
