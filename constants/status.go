package constants

// DocumentStatus is the canonical review state for a stored document.
type DocumentStatus string

// Stable values (store these exact strings in the document store).
const (
	StatusInReview DocumentStatus = "IN_REVIEW" // initial, entered at creation
	StatusApproved DocumentStatus = "APPROVED"  // terminal
)
