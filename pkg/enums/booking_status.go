package enums

// BookingStatus maps to the booking_status enum in Postgres.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCanceled  BookingStatus = "canceled"
)

// IsValid checks whether the given status matches the canonical enum.
func (b BookingStatus) IsValid() bool {
	return b == BookingStatusConfirmed || b == BookingStatusCanceled
}
