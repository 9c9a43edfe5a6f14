package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"salonvox/internal/booking"
)

var bookingFields = []string{"name", "phone", "date", "time", "service", "price", "duration"}

var (
	reservedNames     = []string{"assistant", "ai", "bot"}
	placeholderPhones = []string{"555-123", "555-000"}
)

const minPhoneLen = 7

// Rejection is a booking directive that failed validation. Reply is what
// the caller hears.
type Rejection struct {
	Reason string
	Reply  string
}

func (r *Rejection) Error() string {
	return "booking rejected: " + r.Reason
}

// ParseBooking validates a BOOK payload
// (name|phone|date|time|service|price|duration) and returns the
// appointment to create. persona is the assistant's own name, which is
// never accepted as the customer's.
func ParseBooking(payload, persona string) (booking.Appointment, error) {
	parts := strings.Split(payload, "|")
	if len(parts) < len(bookingFields) {
		missing := bookingFields[len(parts):]
		return booking.Appointment{}, &Rejection{
			Reason: fmt.Sprintf("got %d fields, need %d", len(parts), len(bookingFields)),
			Reply:  "I need more information to book. Please provide: " + strings.Join(missing, ", "),
		}
	}

	name := strings.TrimSpace(parts[0])
	phone := strings.TrimSpace(parts[1])

	if isReservedName(name, persona) {
		return booking.Appointment{}, &Rejection{
			Reason: fmt.Sprintf("assistant name %q used as customer", name),
			Reply:  "I need the CUSTOMER's name, not mine! What is YOUR name?",
		}
	}
	if len([]rune(name)) < 2 {
		return booking.Appointment{}, &Rejection{
			Reason: fmt.Sprintf("invalid name %q", name),
			Reply:  "I need your full name to complete the booking. What's your name?",
		}
	}
	if !validPhone(phone) {
		return booking.Appointment{}, &Rejection{
			Reason: fmt.Sprintf("invalid phone %q", phone),
			Reply:  "I need a valid phone number to complete the booking. What's your phone number?",
		}
	}

	price, err := strconv.Atoi(digits(parts[5]))
	if err != nil {
		return booking.Appointment{}, troubleRejection("price", parts[5])
	}

	dur := ""
	if f := strings.Fields(parts[6]); len(f) > 0 {
		dur = digits(f[0])
	}
	duration, err := strconv.Atoi(dur)
	if err != nil {
		return booking.Appointment{}, troubleRejection("duration", parts[6])
	}

	return booking.Appointment{
		CustomerName: name,
		Phone:        phone,
		Date:         strings.TrimSpace(parts[2]),
		Time:         strings.TrimSpace(parts[3]),
		Service:      strings.TrimSpace(parts[4]),
		Price:        price,
		Duration:     duration,
	}, nil
}

func troubleRejection(field, raw string) *Rejection {
	return &Rejection{
		Reason: fmt.Sprintf("unparseable %s %q", field, raw),
		Reply:  TroubleReply,
	}
}

func isReservedName(name, persona string) bool {
	n := strings.ToLower(name)
	if persona != "" && n == strings.ToLower(persona) {
		return true
	}
	for _, r := range reservedNames {
		if n == r {
			return true
		}
	}
	return false
}

func validPhone(phone string) bool {
	if len(phone) < minPhoneLen {
		return false
	}
	for _, p := range placeholderPhones {
		if strings.HasPrefix(phone, p) {
			return false
		}
	}
	return true
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
