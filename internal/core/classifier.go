package core

// Classification says how a line must be reconciled.
type Classification int

const (
	// ClassNew lines exist only client-side and are reconciled via create.
	ClassNew Classification = iota
	// ClassExisting lines exist in the backend and are reconciled via update/delete.
	ClassExisting
)

func (c Classification) String() string {
	if c == ClassExisting {
		return "EXISTING"
	}
	return "NEW"
}

// Classify reports EXISTING iff the line carries a server-issued reference
// (ServerRef or the numeric LegacyID alias). LocalID never participates.
func Classify(l DetailLine) Classification {
	if l.Ref() != "" {
		return ClassExisting
	}
	return ClassNew
}
