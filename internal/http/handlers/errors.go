// Package handlers defines the HTTP error codes used across the API.
//
// Every error response carries one of these codes next to the status so
// clients can branch on a stable value:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_found",
//	  "message": "expense not found"
//	}
//
// Pipeline failures behind POST /messages are not errors at this layer: the
// assistant answers them with its apology text and a 200.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeAnswerFailed = "answer_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeLookupFailed = "lookup_failed"
)
