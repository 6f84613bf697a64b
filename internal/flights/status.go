package flights

type SeatStatus string

const (
	SeatFree   SeatStatus = "FREE"
	SeatHeld   SeatStatus = "HELD"
	SeatBooked SeatStatus = "BOOKED"
)

func (s SeatStatus) IsValid() bool {
	switch s {
	case SeatFree, SeatHeld, SeatBooked:
		return true
	}
	return false
}

func (s SeatStatus) String() string {
	return string(s)
}

// CountsTowardCapacity reports whether a seat in this state is part of Flight.Capacity.
func (s SeatStatus) CountsTowardCapacity() bool {
	return s != SeatBooked
}

type SeatClass string

const (
	ClassEconomy  SeatClass = "ECONOMY"
	ClassBusiness SeatClass = "BUSINESS"
	ClassFirst    SeatClass = "FIRST"
)

func (c SeatClass) IsValid() bool {
	switch c {
	case ClassEconomy, ClassBusiness, ClassFirst:
		return true
	}
	return false
}
