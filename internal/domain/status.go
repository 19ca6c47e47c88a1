package domain

import (
	"fmt"
	"strings"
)

// ClientStatus position of a client in the mortgage pipeline
type ClientStatus string

const (
	StatusSubmitted       ClientStatus = "SUBMITTED"
	StatusContacted       ClientStatus = "CONTACTED"
	StatusQualified       ClientStatus = "QUALIFIED"
	StatusSubmittedToBank ClientStatus = "SUBMITTED_TO_BANK"
	StatusPreapproved     ClientStatus = "PREAPPROVED"
	StatusFOLReceived     ClientStatus = "FOL_RECEIVED"
	StatusDisbursed       ClientStatus = "DISBURSED"
	StatusDeclined        ClientStatus = "DECLINED"
)

// AllStatuses in pipeline order, DECLINED last.
var AllStatuses = []ClientStatus{
	StatusSubmitted,
	StatusContacted,
	StatusQualified,
	StatusSubmittedToBank,
	StatusPreapproved,
	StatusFOLReceived,
	StatusDisbursed,
	StatusDeclined,
}

func (s ClientStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s ClientStatus) Terminal() bool {
	return s == StatusDisbursed || s == StatusDeclined
}

// ParseStatus accepts any letter case and surrounding whitespace.
func ParseStatus(raw string) (ClientStatus, error) {
	s := ClientStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}
	return s, nil
}
