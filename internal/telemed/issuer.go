// Package telemed mints remote-session links for confirmed virtual visits.
package telemed

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const defaultBaseURL = "https://meet.jit.si"

// Issuer generates unique, opaque meeting room links. The room token is a
// fresh UUID, so two calls never collide; idempotency across calls for the
// same appointment is the booking service's job.
type Issuer struct {
	baseURL string
}

func NewIssuer(baseURL string) *Issuer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Issuer{baseURL: strings.TrimRight(baseURL, "/")}
}

// NewLink returns a reachable meeting URL for a fresh room.
func (i *Issuer) NewLink() string {
	return fmt.Sprintf("%s/adh-%s", i.baseURL, uuid.NewString())
}
