package request

type AddFilterRequest struct {
	Model    string `json:"model"`
	MaxPrice *int   `json:"max_price,omitempty"`
}
