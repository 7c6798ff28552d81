package journal

import "time"

// ActionKind is the state-changing operation applied to one package on one
// device user profile.
type ActionKind string

const (
	KindUninstall ActionKind = "uninstall"
	KindDisable   ActionKind = "disable"
	KindEnable    ActionKind = "enable"
	KindClearData ActionKind = "clear-data"
	KindRestore   ActionKind = "restore"
)

// Mutating reports whether the kind changes the package's
// installed/enabled state (ClearData wipes data but leaves both flags).
func (k ActionKind) Mutating() bool {
	return k == KindUninstall || k == KindDisable || k == KindEnable || k == KindRestore
}

// Outcome is the terminal result of an action. Every submitted action
// resolves to exactly one of these.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// PackageState is the snapshot of a package's mutable fields taken before
// an action runs. It is what a restore reapplies.
type PackageState struct {
	Installed bool
	Enabled   bool
	System    bool
}

// Record is one append-only journal entry.
type Record struct {
	ID        int64
	Serial    string
	User      uint16
	Package   string
	Kind      ActionKind
	Outcome   Outcome
	Retries   int
	Previous  PackageState
	Error     string
	CreatedAt time.Time
}
