package session

// Tx is a view of State that is only valid inside State.Update. Its methods do
// not lock.
type Tx struct {
	s *State
}

func (tx *Tx) Pending() (PendingResolution, bool) {
	return tx.s.pendingLocked()
}

func (tx *Tx) ClearPendingResolution() {
	tx.s.clearPendingLocked()
}

func (tx *Tx) AwardPoints(n int) {
	tx.s.awardLocked(n)
}

func (tx *Tx) Score() int {
	return tx.s.score
}

func (tx *Tx) ConfederateName() *string {
	return copyString(tx.s.confederateName)
}

func (tx *Tx) ParticipantName() *string {
	return copyString(tx.s.participantName)
}
