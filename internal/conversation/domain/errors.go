package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when the requested row does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateMessage is returned when an inbound message with the same
	// provider message id was already recorded. Duplicate deliveries are
	// silently dropped by the ingestion boundary.
	ErrDuplicateMessage = errors.New("duplicate provider message id")

	// ErrCardDocumentMissing signals a card fulfillment whose policy has no
	// attached identity-card document. This is a data integrity error, not a
	// user input error: the enclosing transaction is rolled back and no
	// user-facing reply is sent.
	ErrCardDocumentMissing = errors.New("insurance card document missing or unattached")
)
