package contacts

import (
	"fmt"
	"strings"
)

// Policy decides when two users count as confirmed contacts.
type Policy string

const (
	// PolicyAccepted: an accepted request in either direction is enough.
	PolicyAccepted Policy = "accepted"
	// PolicyMutualAccepted: requests in both directions, each accepted.
	PolicyMutualAccepted Policy = "mutual"
	// PolicyBidirectional: requests in both directions, acceptance ignored.
	PolicyBidirectional Policy = "bidirectional"
)

// Policies lists every supported policy.
var Policies = []Policy{PolicyAccepted, PolicyMutualAccepted, PolicyBidirectional}

// ParsePolicy accepts a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Policies {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Direction selects which side of a connection a user is on.
type Direction string

const (
	DirectionAny      Direction = ""
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(s)); d {
	case DirectionAny, DirectionIncoming, DirectionOutgoing:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}
