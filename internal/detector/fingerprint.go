package detector

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/alanyoungcy/crossodds/internal/domain"
	"github.com/alanyoungcy/crossodds/internal/normalize"
)

// Fingerprint is a stable hex hash of the opportunity identity: the
// normalized participants, the sorted side-tagged outcome labels and the
// kind. Prices never enter the hash, so the same discrepancy re-detected at
// a different price keeps its fingerprint.
func Fingerprint(participants []string, legA, legB domain.Leg, kind domain.OpportunityKind) string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, normalize.Fold(p))
	}
	sort.Strings(names)

	labels := []string{
		"a:" + normalize.Fold(legA.Outcome),
		"b:" + normalize.Fold(legB.Outcome),
	}
	sort.Strings(labels)

	var b strings.Builder
	b.WriteString(strings.Join(names, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(labels, ","))
	b.WriteByte('|')
	b.WriteString(string(kind))

	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
