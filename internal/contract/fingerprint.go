package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint computes a sha256 over the sorted commands (id/usage/summary)
// and errors (code/retryable), per spec §6.1. Callers that already sorted
// their slices pay no extra cost; Fingerprint sorts defensive copies so it
// never mutates the caller's data.
func Fingerprint(commands []CommandEntry, errEntries []ErrorEntry) string {
	cmds := make([]CommandEntry, len(commands))
	copy(cmds, commands)
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].ID < cmds[j].ID })

	errs := make([]ErrorEntry, len(errEntries))
	copy(errs, errEntries)
	sort.Slice(errs, func(i, j int) bool { return errs[i].Code < errs[j].Code })

	var b strings.Builder
	for _, c := range cmds {
		fmt.Fprintf(&b, "cmd\t%s\t%s\t%s\n", c.ID, c.Usage, c.Summary)
	}
	for _, e := range errs {
		fmt.Fprintf(&b, "err\t%s\t%t\n", e.Code, e.Retryable)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
