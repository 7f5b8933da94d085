package domain

// SlotState describes where a session's flight sub-dialogue currently is.
type SlotState string

const (
	SlotStateEmpty      SlotState = "empty"
	SlotStateCollecting SlotState = "collecting"
	SlotStateComplete   SlotState = "complete"
	SlotStateAbandoned  SlotState = "abandoned"
)

// FlightSlots accumulates the flight-search parameters collected across turns.
type FlightSlots struct {
	Adults          int    `json:"adults,omitempty"`
	Origin          string `json:"origin,omitempty"`
	Destination     string `json:"destination,omitempty"`
	OriginCode      string `json:"origin_code,omitempty"`
	DestinationCode string `json:"destination_code,omitempty"`
	DepartureDate   string `json:"departure_date,omitempty"`
}

// Merge overwrites each field with the incoming value when it is filled.
// An empty incoming value never clears a previously collected one, so the
// merge is monotonic per field.
func (s *FlightSlots) Merge(in *FlightSlots) {
	if in == nil {
		return
	}
	if in.Adults > 0 {
		s.Adults = in.Adults
	}
	if in.Origin != "" {
		s.Origin = in.Origin
	}
	if in.Destination != "" {
		s.Destination = in.Destination
	}
	if in.OriginCode != "" {
		s.OriginCode = in.OriginCode
	}
	if in.DestinationCode != "" {
		s.DestinationCode = in.DestinationCode
	}
	if in.DepartureDate != "" {
		s.DepartureDate = in.DepartureDate
	}
}

// Complete reports whether every parameter needed for a fare lookup is filled.
func (s *FlightSlots) Complete() bool {
	return s.Adults > 0 &&
		s.Origin != "" &&
		s.Destination != "" &&
		s.OriginCode != "" &&
		s.DestinationCode != "" &&
		s.DepartureDate != ""
}

// Missing returns the names of the fields still waiting for a value.
func (s *FlightSlots) Missing() []string {
	var missing []string
	if s.Adults <= 0 {
		missing = append(missing, "adults")
	}
	if s.Origin == "" {
		missing = append(missing, "origin")
	}
	if s.Destination == "" {
		missing = append(missing, "destination")
	}
	if s.OriginCode == "" {
		missing = append(missing, "origin_code")
	}
	if s.DestinationCode == "" {
		missing = append(missing, "destination_code")
	}
	if s.DepartureDate == "" {
		missing = append(missing, "departure_date")
	}
	return missing
}

// Empty reports whether nothing has been collected yet. The adults default
// alone does not count as progress.
func (s *FlightSlots) Empty() bool {
	return s.Origin == "" && s.Destination == "" &&
		s.OriginCode == "" && s.DestinationCode == "" &&
		s.DepartureDate == ""
}

// State derives the slot-filling state for a (possibly nil) slot record.
func (s *FlightSlots) State() SlotState {
	switch {
	case s == nil || s.Empty():
		return SlotStateEmpty
	case s.Complete():
		return SlotStateComplete
	default:
		return SlotStateCollecting
	}
}
