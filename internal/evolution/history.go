package evolution

import (
	"fmt"

	"github.com/jonathan/talent-compass/internal/types"
)

// CheckHistory verifies that snapshots are ordered by version starting at 1 with no gaps
// and that each snapshot's code matches its scores.
func CheckHistory(history []types.ProfileSnapshot) error {
	for i, snap := range history {
		if snap.Version != i+1 {
			return fmt.Errorf("snapshot %d has version %d, want %d", i, snap.Version, i+1)
		}
		if want := types.DeriveRIASECCode(snap.DimensionScores); snap.RIASECCode != want {
			return fmt.Errorf("snapshot v%d code %q does not match scores (want %q)", snap.Version, snap.RIASECCode, want)
		}
	}
	return nil
}
