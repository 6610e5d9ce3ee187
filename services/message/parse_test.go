package message

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportanceLevel(t *testing.T) {
	for _, v := range []string{"High", "HIGH", "high", "  high "} {
		require.NotNil(t, ImportanceLevel(v), v)
		assert.Equal(t, 1, *ImportanceLevel(v))
	}
	assert.Equal(t, 3, *ImportanceLevel("Normal"))
	assert.Equal(t, 5, *ImportanceLevel("low"))
	assert.Nil(t, ImportanceLevel("urgent"))
	assert.Nil(t, ImportanceLevel(""))
}

func TestPriorityLevel(t *testing.T) {
	assert.Equal(t, 1, *PriorityLevel("1 (Highest)"))
	assert.Equal(t, 3, *PriorityLevel("3"))
	assert.Equal(t, 5, *PriorityLevel(" 5 (Lowest)"))
	assert.Nil(t, PriorityLevel("0"))
	assert.Nil(t, PriorityLevel("9"))
	assert.Nil(t, PriorityLevel("high"))
	assert.Nil(t, PriorityLevel(""))
}

func TestPreview(t *testing.T) {
	p := Preview("Hi   there\n\n:)", "<p>ignored</p>")
	require.NotNil(t, p)
	assert.Equal(t, "Hi there :)", *p)

	p = Preview("", "<html><head><style>p{}</style></head><body><p>Quarterly <b>numbers</b></p></body></html>")
	require.NotNil(t, p)
	assert.Equal(t, "Quarterly numbers", *p)

	assert.Nil(t, Preview("", ""))
	assert.Nil(t, Preview("  ", "<div> </div>"))

	long := Preview(strings.Repeat("é", 400), "")
	require.NotNil(t, long)
	assert.Equal(t, 255, len([]rune(*long)))
}

func TestChecksum(t *testing.T) {
	sent := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, sha256Hex("<id@x>Hello2025-01-02T03:04:05Z"), Checksum("<id@x>", "Hello", sent))
	assert.Equal(t, sha256Hex("<id@x>Hello"), Checksum("<id@x>", "Hello", time.Time{}))
	assert.Len(t, Checksum("", "", time.Time{}), 64)
}

func TestThreadHash(t *testing.T) {
	parent := ThreadHash("Re: Budget", "<parent@x>", nil)
	require.NotNil(t, parent)
	assert.Equal(t, sha256Hex("<parent@x>"), *parent)
	assert.NotEqual(t, sha256Hex("budget"), *parent)

	refs := ThreadHash("Re: Budget", "", []string{"<root@x>", "<parent@x>"})
	require.NotNil(t, refs)
	assert.Equal(t, sha256Hex("<root@x>"), *refs)

	bySubject := ThreadHash("Fwd: Budget", "", nil)
	require.NotNil(t, bySubject)
	assert.Equal(t, sha256Hex("budget"), *bySubject)

	assert.Nil(t, ThreadHash("", "", nil))
	assert.Nil(t, ThreadHash("Re:", "", nil))
}

func TestThreadHash_PrefixAndCaseInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	subjectGen := gen.AlphaString().SuchThat(func(s string) bool { return s != "" })
	prefixGen := gen.OneConstOf("Re: ", "RE: ", "re:", "Fwd: ", "FWD:", "Fw: ", "fw:  ")

	properties.Property("prefixed subject hashes like the bare subject", prop.ForAll(
		func(subject, prefix string) bool {
			bare := ThreadHash(subject, "", nil)
			prefixed := ThreadHash(prefix+subject, "", nil)
			return bare != nil && prefixed != nil && *bare == *prefixed
		},
		subjectGen,
		prefixGen,
	))

	properties.Property("case variants hash identically", prop.ForAll(
		func(subject string) bool {
			upper := ThreadHash(strings.ToUpper(subject), "", nil)
			lower := ThreadHash(strings.ToLower(subject), "", nil)
			return upper != nil && lower != nil && *upper == *lower
		},
		subjectGen,
	))

	properties.Property("parent id wins over subject", prop.ForAll(
		func(subject, parent string) bool {
			h := ThreadHash(subject, "<"+parent+"@x>", nil)
			return h != nil && *h == sha256Hex("<"+parent+"@x>")
		},
		gen.AlphaString(),
		subjectGen,
	))

	properties.TestingRun(t)
}
