package service

import "github.com/bagger-dev/bagger-back/internal/db"

// Ownership classifies a cheat relative to a caller. System cheats have
// no owning user and never match a caller through this path.
type Ownership int

const (
	OwnedByCaller Ownership = iota
	OwnedByOther
	SystemOwned
)

func ownershipOf(cheat *db.Cheat, userID uint64) Ownership {
	if cheat.CreatedByUserID == nil {
		return SystemOwned
	}
	if *cheat.CreatedByUserID == userID {
		return OwnedByCaller
	}
	return OwnedByOther
}

// canOverlay gates overlay writes on a cheat. Deliberately permissive:
// any authenticated user may favorite or annotate any cheat, visible or
// not. Tighten here if that policy ever changes.
func canOverlay(_ *db.Cheat, _ uint64) bool {
	return true
}
