package handler

const (
	headerApplicationID  = "Application-Id"
	headerIdempotencyKey = "Idempotency-Key"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

// saveApplicationRequest is the POST /applications body. Any id or owner in
// the body is ignored; the id comes from the Application-Id header and the
// owner from the authorizer.
type saveApplicationRequest struct {
	Position string `json:"position" validate:"required"`
	Company  string `json:"company"  validate:"required"`
	Location string `json:"location"`
	Salary   string `json:"salary"`
	Date     string `json:"date"     validate:"omitempty,datetime=2006-01-02"`
	Status   string `json:"status"`
	URL      string `json:"url"      validate:"omitempty,url"`
	Notes    string `json:"notes"`
}

type profileRequest struct {
	Email     string `json:"email"     validate:"omitempty,email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
