package request

type ValidateRequest struct {
	UserID   string `json:"userId"`
	Input    string `json:"input"`
	Category string `json:"category,omitempty"`
}
