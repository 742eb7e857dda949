package global

// ErrorBody is what the API sends for any failed call.
type ErrorBody struct {
	Error string `json:"error"`
}

// MutationResponse is the success/error envelope of create, update and
// delete calls.
type MutationResponse struct {
	Success bool        `json:"success"`
	Product interface{} `json:"product,omitempty"`
	Cart    interface{} `json:"cart,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CartsResponse wraps a cart under the "carts" key the storefront clients read.
type CartsResponse struct {
	Carts interface{} `json:"carts"`
}

func ErrorResponse(message string) ErrorBody {
	return ErrorBody{Error: message}
}

func FailedMutation(message string) MutationResponse {
	return MutationResponse{Success: false, Error: message}
}
