package reservations

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusConfirmed Status = "CONFIRMED"
	StatusReleased  Status = "RELEASED"
	StatusExpired   Status = "EXPIRED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusConfirmed, StatusReleased, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s != StatusActive
}

func (s Status) String() string {
	return string(s)
}
