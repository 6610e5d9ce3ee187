package enum

import "strings"

// MessageFlag is the closed set of system flags tracked as columns.
// Any other flag is only kept in the raw flag list.
type MessageFlag string

const (
	FlagSeen     MessageFlag = `\Seen`
	FlagAnswered MessageFlag = `\Answered`
	FlagFlagged  MessageFlag = `\Flagged`
	FlagDeleted  MessageFlag = `\Deleted`
	FlagDraft    MessageFlag = `\Draft`
	FlagRecent   MessageFlag = `\Recent`
)

var messageFlags = []MessageFlag{FlagSeen, FlagAnswered, FlagFlagged, FlagDeleted, FlagDraft, FlagRecent}

func (f MessageFlag) String() string {
	return string(f)
}

// ParseMessageFlag matches case-insensitively against the system flags.
func ParseMessageFlag(raw string) (MessageFlag, bool) {
	for _, f := range messageFlags {
		if strings.EqualFold(raw, string(f)) {
			return f, true
		}
	}
	return "", false
}

type FlagSet struct {
	Seen     bool
	Answered bool
	Flagged  bool
	Deleted  bool
	Draft    bool
	Recent   bool
}

func NewFlagSet(raw []string) FlagSet {
	var fs FlagSet
	for _, r := range raw {
		f, ok := ParseMessageFlag(r)
		if !ok {
			continue
		}
		switch f {
		case FlagSeen:
			fs.Seen = true
		case FlagAnswered:
			fs.Answered = true
		case FlagFlagged:
			fs.Flagged = true
		case FlagDeleted:
			fs.Deleted = true
		case FlagDraft:
			fs.Draft = true
		case FlagRecent:
			fs.Recent = true
		}
	}
	return fs
}
