package inventory

import "fmt"

// RemoteError is returned for every failed call to the inventory service:
// transport failures, non-200 responses and JSON-RPC error replies.
type RemoteError struct {
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("inventory %s: %v", e.Op, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("inventory %s: %d %s", e.Op, e.Code, e.Message)
	default:
		return fmt.Sprintf("inventory %s: %s", e.Op, e.Message)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
