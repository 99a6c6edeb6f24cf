package domain

import "strconv"

// Viewer is the authenticated account acting on a request.
type Viewer struct {
	Role Role
	ID   int64
}

// Key is the textual id stored in message sender/receiver columns.
func (v Viewer) Key() string {
	return strconv.FormatInt(v.ID, 10)
}

// ParticipantKey addresses live connections. Client and freelancer ids are
// separate sequences, so the role is part of the key.
func ParticipantKey(role Role, id string) string {
	return string(role) + ":" + id
}

// Participant is the viewer's live-connection key.
func (v Viewer) Participant() string {
	return ParticipantKey(v.Role, v.Key())
}
