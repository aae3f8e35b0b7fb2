// Package receipt renders booking receipts to plain text. The renderer is an
// interface so an HTML or PDF renderer can be swapped in without touching the
// booking flow.
package receipt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/flightbooker/backend/internal/models"
)

// Renderer turns a receipt record into a subject line and a body
type Renderer interface {
	Render(record *models.ReceiptRecord) (subject, body string, err error)
}

const textTemplate = `{{ if eq .Kind "cancellation" -}}
Your booking has been cancelled.
{{- else -}}
Your booking is confirmed.
{{- end }}

PNR:       {{ .PNR }}
Reference: {{ .BookingReference }}
Flight:    {{ .AirlineCode }} {{ .FlightNumber }}  {{ .OriginCode }} -> {{ .DestinationCode }}
Departs:   {{ .DepartureTime.Format "Mon, 02 Jan 2006 15:04 MST" }}
Arrives:   {{ .ArrivalTime.Format "Mon, 02 Jan 2006 15:04 MST" }}

Passengers:
{{ range .Passengers }}  {{ .Name }}  seat {{ .SeatNumber }} ({{ .SeatClass }}){{ if .TicketNo }}  ticket {{ .TicketNo }}{{ end }}
{{ end }}
Total fare: {{ printf "%.2f" .TotalFare }}
{{- if eq .Kind "confirmation" }}
Paid:       {{ printf "%.2f" .PaidAmount }}  ({{ .TransactionID }})
{{- end }}

Issued {{ .IssuedAt.Format "02 Jan 2006 15:04 MST" }}.
`

// TextRenderer renders receipts as plain text email bodies
type TextRenderer struct {
	tmpl *template.Template
}

// NewTextRenderer creates the default plain-text renderer
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{
		tmpl: template.Must(template.New("receipt").Parse(textTemplate)),
	}
}

// Render produces the subject and body for one receipt
func (r *TextRenderer) Render(record *models.ReceiptRecord) (string, string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, record); err != nil {
		return "", "", fmt.Errorf("failed to render receipt: %w", err)
	}

	subject := fmt.Sprintf("Booking confirmed: %s (%s %s)", record.PNR, record.AirlineCode, record.FlightNumber)
	if record.Kind == "cancellation" {
		subject = fmt.Sprintf("Booking cancelled: %s", record.BookingReference)
	}

	return subject, buf.String(), nil
}
