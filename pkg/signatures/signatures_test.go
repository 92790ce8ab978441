package signatures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSeedsEICAR(t *testing.T) {
	db := New()
	record, ok := db.Lookup(eicarHash, "")
	require.True(t, ok)
	require.Equal(t, "EICAR-Test-File", record.Name)
}

func TestLoadMissingFileStillSeedsEICAR(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "does-not-exist.db"))
	require.NoError(t, err)
	_, ok := db.Lookup(eicarHash, "")
	require.True(t, ok)
}

func TestLoadParsesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signatures.db")
	content := "# comment\n" +
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa|Trojan.Test|90\n" +
		"\n" +
		"bad-line-no-pipes\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	db, err := Load(path)
	require.NoError(t, err)

	record, ok := db.Lookup("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "")
	require.True(t, ok)
	require.Equal(t, "Trojan.Test", record.Name)
	require.Equal(t, 90, record.Severity)
}

func TestLookupPrefersSHA256OverMD5(t *testing.T) {
	db := New()
	db.add(Record{Name: "MD5Match", Hash: "11111111111111111111111111111111", Algorithm: MD5, Severity: 50})
	db.add(Record{Name: "SHA256Match", Hash: "2222222222222222222222222222222222222222222222222222222222222222", Algorithm: SHA256, Severity: 50})

	// The MD5 record is found on its own.
	_, ok := db.Lookup("", "11111111111111111111111111111111")
	require.True(t, ok)

	// When both digests match, the SHA-256 record wins.
	record, ok := db.Lookup("2222222222222222222222222222222222222222222222222222222222222222", "11111111111111111111111111111111")
	require.True(t, ok)
	require.Equal(t, "SHA256Match", record.Name)
}

func TestLookupContent(t *testing.T) {
	db := New()
	record, ok := db.LookupContent([]byte("prefix " + eicarPattern + " suffix"))
	require.True(t, ok)
	require.Equal(t, "EICAR-Test-File", record.Name)
}

func TestLookupContentNoMatch(t *testing.T) {
	db := New()
	_, ok := db.LookupContent([]byte("nothing interesting here"))
	require.False(t, ok)
}
