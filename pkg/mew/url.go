package mew

import (
	"net/url"
	"strings"

	"github.com/mew-app/contacts-sync/pkg/models"
)

const userRootPrefix = "user-root-"

// ParseUserRootURL extracts the root node id and the author id from a user
// root URL of the fixed shape
//
//	https://<host>/g/user-root-<authorID>
//
// The node id is the last path segment and the author id is the suffix after
// the "user-root-" prefix. Malformed input fails fast with
// *InvalidURLFormatError.
func ParseUserRootURL(raw string) (models.NodeID, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", &InvalidURLFormatError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", &InvalidURLFormatError{URL: raw, Reason: "missing scheme or host"}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 || segments[0] != "g" {
		return "", "", &InvalidURLFormatError{URL: raw, Reason: "path must be /g/<node-id>"}
	}

	nodeID := segments[1]
	if !strings.HasPrefix(nodeID, userRootPrefix) {
		return "", "", &InvalidURLFormatError{URL: raw, Reason: "node id is not a user root id"}
	}
	authorID := strings.TrimPrefix(nodeID, userRootPrefix)
	if authorID == "" {
		return "", "", &InvalidURLFormatError{URL: raw, Reason: "empty author id"}
	}

	return models.NodeID(nodeID), authorID, nil
}
