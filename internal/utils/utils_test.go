package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStripReplyPrefix(t *testing.T) {
	tests := map[string]string{
		"Re: Budget":       "Budget",
		"RE:Budget":        "Budget",
		"fwd: Budget":      "Budget",
		"Fw:  Budget ":     "Budget",
		"Re: Re: Budget":   "Re: Budget",
		"Budget":           "Budget",
		"Rebate: approved": "Rebate: approved",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripReplyPrefix(in), in)
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 10))
	assert.Equal(t, "", TruncateRunes("héllo", 0))
	assert.Equal(t, 255, len([]rune(TruncateRunes(strings.Repeat("ж", 300), 255))))
}

func TestSplitHeaderList(t *testing.T) {
	assert.Equal(t, []string{"<a@x>", "<b@x>"}, SplitHeaderList(" <a@x>\r\n <b@x> <a@x>"))
	assert.Nil(t, SplitHeaderList("   "))
}

func TestGenerateNanoIdWithPrefix(t *testing.T) {
	id := GenerateNanoIdWithPrefix("macc", 16)
	assert.True(t, strings.HasPrefix(id, "macc_"))
	assert.Len(t, id, len("macc_")+16)
	assert.NotEqual(t, id, GenerateNanoIdWithPrefix("macc", 16))
}

func TestPointers(t *testing.T) {
	assert.Nil(t, StringPtrOrNil(""))
	assert.Equal(t, "x", *StringPtrOrNil("x"))
	assert.Nil(t, TimePtrOrNil(time.Time{}))
	assert.Equal(t, 3, GetOrDefault[int](nil, 3))
	assert.Equal(t, 5, GetOrDefault(Ptr(5), 3))
}
