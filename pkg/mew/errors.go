package mew

import (
	"fmt"

	"github.com/mew-app/contacts-sync/pkg/models"
)

// AuthenticationError reports a failed token exchange against the auth
// provider. Status and Body are taken from the provider's HTTP response when
// one was received.
type AuthenticationError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("authentication failed: status=%d body=%s", e.Status, e.Body)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// APIError reports a non-2xx response from the graph API, carrying enough
// context to diagnose without a debugger.
type APIError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mew api error: endpoint=%s status=%d body=%s", e.Endpoint, e.Status, e.Body)
}

// NodeOperationError reports a failed operation that references a specific
// node.
type NodeOperationError struct {
	NodeID models.NodeID
	Err    error
}

func (e *NodeOperationError) Error() string {
	return fmt.Sprintf("node operation failed: nodeId=%s: %v", e.NodeID, e.Err)
}

func (e *NodeOperationError) Unwrap() error { return e.Err }

// InvalidURLFormatError reports a user-root URL that does not match the
// expected shape. Parsing the URL is a precondition for any graph operation,
// so this surfaces before any network traffic.
type InvalidURLFormatError struct {
	URL    string
	Reason string
}

func (e *InvalidURLFormatError) Error() string {
	return fmt.Sprintf("invalid user root URL %q: %s", e.URL, e.Reason)
}
