package journal

// RestoreState returns the package state a restore should reapply for a
// (package, profile) pair: the snapshot captured before the most recent
// successful debloating action. Only one level of undo is modeled —
// restoring a restore targets the same original snapshot, never a chain.
func (j *Journal) RestoreState(serial string, user uint16, pkg string) (PackageState, error) {
	rec, err := j.LookupDebloat(serial, user, pkg)
	if err != nil {
		return PackageState{}, err
	}
	return rec.Previous, nil
}
