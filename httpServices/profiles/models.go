package httpServices

// Profile is the read contract exposed by the external profile directory.
type Profile struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Photo     string `json:"photo"`
}

type profileResponse struct {
	Status  int     `json:"status"`
	Message string  `json:"message"`
	Data    Profile `json:"data"`
}
