package contract

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestTree() *cobra.Command {
	root := &cobra.Command{Use: "surfwright"}
	session := &cobra.Command{Use: "session", Short: "manage sessions"}
	session.AddCommand(&cobra.Command{Use: "ensure", Short: "ensure a session exists"})
	session.AddCommand(&cobra.Command{Use: "list", Short: "list sessions"})
	root.AddCommand(session)
	root.AddCommand(&cobra.Command{Use: "open [url]", Short: "open a url"})
	root.AddCommand(&cobra.Command{Use: "hidden", Short: "should not appear", Hidden: true})
	return root
}

func TestBuildManifestCollectsCommandsSortedByID(t *testing.T) {
	m := BuildManifest(buildTestTree(), "surfwright", "0.1.0")

	var ids []string
	for _, c := range m.Commands {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"open", "session", "session ensure", "session list"}, ids)
}

func TestBuildManifestExcludesHiddenCommands(t *testing.T) {
	m := BuildManifest(buildTestTree(), "surfwright", "0.1.0")
	for _, c := range m.Commands {
		assert.NotEqual(t, "hidden", c.ID)
	}
}

func TestBuildManifestIncludesFullErrorTaxonomy(t *testing.T) {
	m := BuildManifest(buildTestTree(), "surfwright", "0.1.0")
	assert.NotEmpty(t, m.Errors)
	found := false
	for _, e := range m.Errors {
		if e.Code == "E_CDP_UNREACHABLE" {
			found = true
			assert.True(t, e.Retryable)
		}
	}
	assert.True(t, found)
}

func TestFingerprintIsStableAndOrderIndependent(t *testing.T) {
	commands := []CommandEntry{
		{ID: "open", Usage: "open [url]", Summary: "open a url"},
		{ID: "session", Usage: "session", Summary: "manage sessions"},
	}
	errEntries := []ErrorEntry{
		{Code: "E_CDP_UNREACHABLE", Retryable: true},
		{Code: "E_URL_INVALID", Retryable: false},
	}

	a := Fingerprint(commands, errEntries)

	reversedCommands := []CommandEntry{commands[1], commands[0]}
	reversedErrors := []ErrorEntry{errEntries[1], errEntries[0]}
	b := Fingerprint(reversedCommands, reversedErrors)

	require.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintChangesWhenCommandSetChanges(t *testing.T) {
	base := Fingerprint([]CommandEntry{{ID: "open", Usage: "open [url]", Summary: "open"}}, nil)
	withExtra := Fingerprint([]CommandEntry{
		{ID: "open", Usage: "open [url]", Summary: "open"},
		{ID: "close", Usage: "close", Summary: "close"},
	}, nil)
	assert.NotEqual(t, base, withExtra)
}
