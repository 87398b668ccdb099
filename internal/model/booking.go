package model

import "time"

// Transport kinds.
const (
	TransportFlight = "flight"
	TransportTrain  = "train"
	TransportBus    = "bus"
	TransportFerry  = "ferry"
	TransportCar    = "car"
	TransportOther  = "other"
)

// Transport is a single leg of a journey.
type Transport struct {
	ID          string     `json:"id" db:"id"`
	JourneyID   string     `json:"journey_id" db:"journey_id"`
	Kind        string     `json:"kind" db:"kind"`
	Carrier     string     `json:"carrier" db:"carrier"`
	Number      string     `json:"number" db:"number"`
	Origin      string     `json:"origin" db:"origin"`
	Destination string     `json:"destination" db:"destination"`
	DepartureAt time.Time  `json:"departure_at" db:"departure_at"`
	ArrivalAt   *time.Time `json:"arrival_at,omitempty" db:"arrival_at"`
	BookingRef  string     `json:"booking_ref" db:"booking_ref"`
	IsCompleted bool       `json:"is_completed" db:"is_completed"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Hotel is an accommodation booking.
type Hotel struct {
	ID         string    `json:"id" db:"id"`
	JourneyID  string    `json:"journey_id" db:"journey_id"`
	Name       string    `json:"name" db:"name"`
	Address    string    `json:"address" db:"address"`
	CheckIn    time.Time `json:"check_in" db:"check_in"`
	CheckOut   time.Time `json:"check_out" db:"check_out"`
	BookingRef string    `json:"booking_ref" db:"booking_ref"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CarRental is a vehicle hire booking.
type CarRental struct {
	ID              string    `json:"id" db:"id"`
	JourneyID       string    `json:"journey_id" db:"journey_id"`
	Company         string    `json:"company" db:"company"`
	PickupLocation  string    `json:"pickup_location" db:"pickup_location"`
	PickupAt        time.Time `json:"pickup_at" db:"pickup_at"`
	DropoffLocation string    `json:"dropoff_location" db:"dropoff_location"`
	DropoffAt       time.Time `json:"dropoff_at" db:"dropoff_at"`
	BookingRef      string    `json:"booking_ref" db:"booking_ref"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
