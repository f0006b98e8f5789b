package location

// LocationReport is one provider position sample. Pointers distinguish a
// missing coordinate from zero (0,0 is a valid position).
type LocationReport struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
}
