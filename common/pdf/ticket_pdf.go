package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// TicketData is everything printed on one attendee's entry pass.
type TicketData struct {
	BookingCode     string
	MemberCode      string
	MemberName      string
	EventTitle      string
	SelectedDate    string
	SelectedTime    string
	PricingCategory string
	Price           string
	QRCodePNG       []byte
}

// Filename is the attachment name used for the ticket.
func (d TicketData) Filename() string {
	return fmt.Sprintf("fusionx-ticket-%s.pdf", d.MemberCode)
}

// GenerateTicketPDF renders a single A5 entry pass with the member's QR code.
func GenerateTicketPDF(data TicketData) ([]byte, error) {
	if data.MemberCode == "" {
		return nil, fmt.Errorf("member code is required")
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(122, 28, 172)
	pdf.CellFormat(0, 10, "FusionX", "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 15)
	pdf.MultiCell(0, 7, tr(data.EventTitle), "", "C", false)
	pdf.Ln(3)

	if len(data.QRCodePNG) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		name := "qr_" + data.MemberCode
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data.QRCodePNG))
		const size = 70.0
		pageW, _ := pdf.GetPageSize()
		pdf.ImageOptions(name, (pageW-size)/2, pdf.GetY(), size, size, false, opts, 0, "")
		pdf.Ln(size + 3)
	}

	pdf.SetFont("Courier", "B", 18)
	pdf.CellFormat(0, 9, data.MemberCode, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.4)
	pdf.Line(12, pdf.GetY(), 136, pdf.GetY())
	pdf.Ln(4)

	rows := [][2]string{
		{"Guest", data.MemberName},
		{"Date", data.SelectedDate},
		{"Time", data.SelectedTime},
		{"Ticket", data.PricingCategory},
		{"Price", data.Price},
		{"Booking", data.BookingCode},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(32, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr(row[1]), "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, "Show this QR code at the entrance. Each code admits one person, once.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
