package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Case struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Treatment selects how a session presents retrieved evidence.
type Treatment string

const (
	TreatmentMerged     Treatment = "neutralizer"
	TreatmentSideBySide Treatment = "side_by_side"
)

func ParseTreatment(raw string) (Treatment, error) {
	switch Treatment(strings.TrimSpace(strings.ToLower(raw))) {
	case "", TreatmentMerged:
		return TreatmentMerged, nil
	case TreatmentSideBySide:
		return TreatmentSideBySide, nil
	default:
		return "", NewError(ErrInvalidInput, "parse treatment", "unknown treatment "+raw)
	}
}

type Session struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Treatment Treatment `json:"treatment"`
	CreatedAt time.Time `json:"created_at"`
}

// Party is one of the two adversarial sides of a case.
type Party string

const (
	PartyA Party = "A"
	PartyB Party = "B"
)

func ParseParty(raw string) (Party, error) {
	switch Party(strings.ToUpper(strings.TrimSpace(raw))) {
	case PartyA:
		return PartyA, nil
	case PartyB:
		return PartyB, nil
	default:
		return "", NewError(ErrInvalidInput, "parse party", "party must be A or B")
	}
}

// ResolveSpeakerParty maps labels like "Party A" or "b" onto a party.
func ResolveSpeakerParty(speaker string) (Party, bool) {
	label := strings.ToUpper(strings.TrimSpace(speaker))
	label = strings.TrimSpace(strings.TrimPrefix(label, "PARTY"))
	switch Party(label) {
	case PartyA:
		return PartyA, true
	case PartyB:
		return PartyB, true
	default:
		return "", false
	}
}

// NewID returns a short random identifier for cases, sessions and documents.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
