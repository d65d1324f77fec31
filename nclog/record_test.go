package nclog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordAppendStringCopyRoundTrip(t *testing.T) {
	rec := newRecord(Info, 1, "main.go", "main", 10, 1000)
	rec.AppendStringCopy("hello").AppendInt32(-7)

	var b strings.Builder
	rec.writeFields(&b)
	require.Equal(t, "hello -7", b.String())
}

func TestRecordAppendStringByRef(t *testing.T) {
	rec := newRecord(Info, 1, "main.go", "main", 10, 1000)
	literal := "world"
	rec.AppendString(literal)

	var b strings.Builder
	rec.writeFields(&b)
	require.Equal(t, "world", b.String())
}

func TestRecordAllTagTypes(t *testing.T) {
	rec := newRecord(Warn, 2, "f.go", "g", 1, 0)
	rec.AppendChar('x').
		AppendUint32(42).
		AppendUint64(9999999999).
		AppendInt64(-123456789).
		AppendFloat64(3.5)

	var b strings.Builder
	rec.writeFields(&b)
	require.Equal(t, "x 42 9999999999 -123456789 3.500000", b.String())
}

func TestRecordOverflowsToHeap(t *testing.T) {
	rec := newRecord(Info, 1, "f.go", "g", 1, 0)
	big := strings.Repeat("a", nancyRecordInlineBytesForTest()+100)
	rec.AppendStringCopy(big)
	require.NotNil(t, rec.heap)

	var b strings.Builder
	rec.writeFields(&b)
	require.Equal(t, big, b.String())
}

func TestRecordLevelString(t *testing.T) {
	require.Equal(t, "INFO", Info.String())
	require.Equal(t, "WARN", Warn.String())
	require.Equal(t, "CRIT", Crit.String())
}

func nancyRecordInlineBytesForTest() int {
	return len((&Record{}).inline)
}
