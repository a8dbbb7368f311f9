package stock

import "fmt"

// FailKind classifies a fetch or notify failure for propagation decisions.
type FailKind string

// Failure classifications.
const (
	KindTransient FailKind = "transient"
	KindPermanent FailKind = "permanent"
	KindChallenge FailKind = "challenge"
)

// FetchError is a classified failure returned by the fetch gateway.
type FetchError struct {
	Kind   FailKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: %s (HTTP %d)", e.URL, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure may succeed on a later attempt.
func (e *FetchError) Retryable() bool { return e.Kind == KindTransient }
