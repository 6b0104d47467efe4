package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/glitzfusion/fusionx/common/email"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/media"
	"github.com/glitzfusion/fusionx/common/pdf"
	"github.com/glitzfusion/fusionx/common/qrcode"
	bookingmodels "github.com/glitzfusion/fusionx/services/booking-lambda/models"
)

// renderTickets builds one PDF pass per member. When a media store is
// configured each pass is also uploaded and its URL returned in the line.
func (uc *PaymentUseCase) renderTickets(ctx context.Context, b *bookingmodels.Booking, eventTitle string) ([]email.Attachment, []email.MemberLine, error) {
	attachments := make([]email.Attachment, 0, len(b.Members))
	lines := make([]email.MemberLine, 0, len(b.Members))
	for _, m := range b.Members {
		qr, err := qrcode.PNG(qrcode.EntryPayload(m.MemberCode), qrcode.SizePDF)
		if err != nil {
			return nil, nil, err
		}
		ticket := pdf.TicketData{
			BookingCode:     b.BookingCode,
			MemberCode:      m.MemberCode,
			MemberName:      m.Name,
			EventTitle:      eventTitle,
			SelectedDate:    b.SelectedDate,
			SelectedTime:    b.SelectedTime,
			PricingCategory: string(b.PricingCategory),
			Price:           bookingmodels.FormatAmount(b.UnitPrice, b.Currency),
			QRCodePNG:       qr,
		}
		data, err := pdf.GenerateTicketPDF(ticket)
		if err != nil {
			return nil, nil, err
		}
		attachments = append(attachments, email.Attachment{Filename: ticket.Filename(), Data: data, MimeType: "application/pdf"})

		line := email.MemberLine{Name: m.Name, Email: m.Email, MemberCode: m.MemberCode}
		url, err := uc.media.Upload(ctx, fmt.Sprintf("tickets/%s/%s", b.BookingCode, m.MemberCode), data, "application/pdf")
		switch {
		case err == nil:
			line.TicketURL = url
		case errors.Is(err, media.ErrDisabled):
		default:
			uc.log.WithError(err).Warn("upload ticket %s", m.MemberCode)
		}
		lines = append(lines, line)
	}
	return attachments, lines, nil
}

func (uc *PaymentUseCase) sendPaymentConfirmed(b *bookingmodels.Booking, eventTitle, gatewayPaymentID string) {
	if uc.mailer == nil || uc.jobs == nil {
		return
	}
	primary := b.PrimaryContact()
	if primary.Email == "" {
		return
	}

	uc.jobs.Go("payment_confirmed:"+b.BookingCode, func(ctx context.Context) error {
		attachments, lines, err := uc.renderTickets(ctx, b, eventTitle)
		if err == nil {
			err = uc.mailer.Send(ctx, email.Message{
				To:       primary.Email,
				Template: email.TemplatePaymentConfirmed,
				Subject:  email.Subject(email.TemplatePaymentConfirmed, eventTitle),
				Data: email.PaymentConfirmedData{
					Name:        primary.Name,
					EventTitle:  eventTitle,
					BookingCode: b.BookingCode,
					Date:        b.SelectedDate,
					Time:        b.SelectedTime,
					Category:    string(b.PricingCategory),
					Total:       bookingmodels.FormatAmount(b.TotalAmount, b.Currency),
					PaymentID:   gatewayPaymentID,
					Members:     lines,
				},
				Attachments: attachments,
			})
		}
		if err != nil {
			uc.log.LogEvent(logger.EventLog{
				Event:    "EMAIL_FAILED",
				Entity:   "booking",
				EntityID: b.ID,
				Action:   string(email.TemplatePaymentConfirmed),
				Success:  false,
				Error:    err.Error(),
			})
		}
		return err
	})
}
