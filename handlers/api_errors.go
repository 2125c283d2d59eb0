package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/snaptag/gateway/tagging"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`

	// set only for the insufficient-credits variant, which the UI routes
	// to a dedicated prompt instead of the generic toast
	RemainingCredits *int `json:"remaining_credits,omitempty"`
	RequestedImages  *int `json:"requested_images,omitempty"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// ErrorDetail maps a tagging-service error onto the error taxonomy,
// returning the detail to embed in a response plus the HTTP status it
// belongs with.
func ErrorDetail(err error) (APIErrorDetail, int) {
	var credits *tagging.InsufficientCreditsError
	var validation *tagging.ValidationError
	var transient *tagging.TransientError

	switch {
	case errors.Is(err, tagging.ErrNotFound):
		return APIErrorDetail{
			Code:   "not_found",
			Status: strconv.Itoa(http.StatusNotFound),
			Detail: "The requested resource no longer exists",
		}, http.StatusNotFound

	case errors.As(err, &credits):
		return APIErrorDetail{
			Code:             "insufficient_credits",
			Status:           strconv.Itoa(http.StatusPaymentRequired),
			Detail:           credits.Error(),
			RemainingCredits: &credits.RemainingCredits,
			RequestedImages:  &credits.RequestedImages,
		}, http.StatusPaymentRequired

	case errors.As(err, &validation):
		return APIErrorDetail{
			Code:   "validation_failed",
			Status: strconv.Itoa(http.StatusUnprocessableEntity),
			Detail: validation.Reason,
		}, http.StatusUnprocessableEntity

	case errors.As(err, &transient):
		return APIErrorDetail{
			Code:   "upstream_error",
			Status: strconv.Itoa(http.StatusBadGateway),
			Detail: "The tagging service could not be reached. Please try again.",
		}, http.StatusBadGateway

	default:
		return APIErrorDetail{
			Code:   "internal_error",
			Status: strconv.Itoa(http.StatusInternalServerError),
			Detail: "Something went wrong",
		}, http.StatusInternalServerError
	}
}

// WriteServiceError classifies a tagging-service error and writes the
// matching response. op names the failed operation for the log line.
func WriteServiceError(w http.ResponseWriter, op string, err error) {
	detail, status := ErrorDetail(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error during %s: %v", op, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIErrorResponse{Errors: []APIErrorDetail{detail}})
}
