package models

// ChargeStatus tracks how far a member's share of a list has progressed:
// pendente (nothing sent), cobrado (a charge message went out), pago (the
// member confirmed payment). Transitions only ever move forward.
type ChargeStatus string

const (
	ChargePending ChargeStatus = "pendente"
	ChargeCharged ChargeStatus = "cobrado"
	ChargePaid    ChargeStatus = "pago"
)

// Valid reports whether the status is one of the three known states.
func (s ChargeStatus) Valid() bool {
	return s == ChargePending || s == ChargeCharged || s == ChargePaid
}

func (s ChargeStatus) rank() int {
	switch s {
	case ChargeCharged:
		return 1
	case ChargePaid:
		return 2
	default:
		return 0
	}
}

// CanAdvance reports whether moving to next is allowed. Re-asserting the
// current status is allowed (idempotent); moving backward is not.
func (s ChargeStatus) CanAdvance(next ChargeStatus) bool {
	return next.Valid() && next.rank() >= s.rank()
}

// MemberCharge is one member's charge state within a list. MemberKey is the
// member's stable key (phone digits, or normalised name when no phone is
// known); Name is kept only for rendering.
type MemberCharge struct {
	MemberKey string       `json:"memberKey"`
	Name      string       `json:"name"`
	Status    ChargeStatus `json:"status"`
	ProofName string       `json:"proofName,omitempty"`
}

// Charges holds per-member charge state. Absent entries are implicitly
// pendente.
type Charges struct {
	ByMember []MemberCharge `json:"byMember"`
}
