package classify

import "errors"

var (
	// ErrExpectedObject is returned when the model answered with valid
	// JSON that is not an object (e.g. a bare array).
	ErrExpectedObject = errors.New("classify: response is not a JSON object")

	// ErrIncompleteResult is returned when the response object is missing
	// main_category or sub_category.
	ErrIncompleteResult = errors.New("classify: incomplete result")

	// ErrUnknownCategory is returned when the candidate (main, sub) pair
	// is well-formed but not in the taxonomy.
	ErrUnknownCategory = errors.New("classify: category pair not in taxonomy")

	// ErrConsecutiveFailures is returned once the process-wide
	// consecutive-failure ceiling is reached; further remote attempts are
	// refused until a success resets the counter.
	ErrConsecutiveFailures = errors.New("classify: too many consecutive remote failures")
)

// IsTerminal reports whether err indicates a semantically wrong but
// syntactically valid answer, which a retry with the same prompt is
// unlikely to fix.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrExpectedObject) ||
		errors.Is(err, ErrIncompleteResult) ||
		errors.Is(err, ErrUnknownCategory)
}
