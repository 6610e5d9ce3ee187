package message

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/utils"
)

const previewLength = 255

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	leadingIntRegex = regexp.MustCompile(`^\s*(\d+)`)
)

// parseMessage builds a new row from a remote message. It reads bodies and
// headers, so it is only called the first time a UID is seen.
func (s *messageService) parseMessage(account *models.Account, remote interfaces.IMAPMessage) (*models.Message, error) {
	textBody, err := remote.TextBody()
	if err != nil {
		return nil, errors.Wrap(err, "text body")
	}
	htmlBody, err := remote.HTMLBody()
	if err != nil {
		return nil, errors.Wrap(err, "html body")
	}
	rawHeaders, err := remote.RawHeader()
	if err != nil {
		return nil, errors.Wrap(err, "raw header")
	}
	references, err := remote.References()
	if err != nil {
		return nil, errors.Wrap(err, "references")
	}

	now := s.now()
	subject := remote.Subject()
	sentAt := utils.TimePtrOrNil(remote.Date())
	flags := rawFlags(remote.Flags())
	fs := enum.NewFlagSet(flags)

	msg := &models.Message{
		AccountID:   account.ID,
		RemoteUID:   remote.UID(),
		RemoteMsgNo: remote.SeqNum(),
		MessageID:   remote.MessageID(),
		Subject:     subject,
		SentAt:      sentAt,
		ReceivedAt:  &now,
		Size:        remote.Size(),
		Importance:  importance(remote),
		Priority:    priority(remote),
		InReplyTo:   remote.InReplyTo(),
		References:  strings.Join(references, " "),
		ThreadHash:  ThreadHash(subject, remote.InReplyTo(), references),
		BodyText:    textBody,
		BodyHTML:    htmlBody,
		BodyPreview: Preview(textBody, htmlBody),
		RawHeaders:  rawHeaders,
		IsSeen:      fs.Seen,
		IsAnswered:  fs.Answered,
		IsFlagged:   fs.Flagged,
		IsDeleted:   fs.Deleted,
		IsDraft:     fs.Draft,
		IsRecent:    fs.Recent,
		Flags:       flags,
		SyncedAt:    &now,
		Checksum:    Checksum(remote.MessageID(), subject, remote.Date()),
	}
	if from := remote.From(); from != nil {
		msg.FromEmail = from.Email
		msg.FromName = from.Name
	}
	if replyTo := remote.ReplyTo(); replyTo != nil {
		msg.ReplyToEmail = replyTo.Email
		msg.ReplyToName = replyTo.Name
	}

	if s.cfg.CaptureRawBody {
		raw, err := remote.RawBody()
		if err != nil {
			return nil, errors.Wrap(err, "raw body")
		}
		msg.RawBody = &raw
	}

	return msg, nil
}

func rawFlags(flags []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(flags))
	return append(out, flags...)
}

// Preview strips markup from the text body, falling back to the HTML body,
// and returns at most previewLength runes of collapsed text.
func Preview(textBody, htmlBody string) *string {
	for _, body := range []string{textBody, htmlBody} {
		if strings.TrimSpace(body) == "" {
			continue
		}
		plain := collapseWhitespace(stripTags(body))
		if plain == "" {
			continue
		}
		preview := utils.TruncateRunes(plain, previewLength)
		return &preview
	}
	return nil
}

func stripTags(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, head").Remove()
	return doc.Text()
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// Checksum fingerprints the identifying headers. A zero date contributes "".
func Checksum(messageID, subject string, sentAt time.Time) string {
	date := ""
	if !sentAt.IsZero() {
		date = sentAt.Format(time.RFC3339)
	}
	return sha256Hex(messageID + subject + date)
}

// ThreadHash groups a reply with its parent, or a fresh message with others
// sharing its subject once one reply prefix is removed.
func ThreadHash(subject, inReplyTo string, references []string) *string {
	parent := strings.TrimSpace(inReplyTo)
	if parent == "" && len(references) > 0 {
		parent = strings.TrimSpace(references[0])
	}
	if parent != "" {
		h := sha256Hex(parent)
		return &h
	}

	cleaned := utils.StripReplyPrefix(subject)
	if cleaned == "" {
		return nil
	}
	h := sha256Hex(strings.ToLower(cleaned))
	return &h
}

// ImportanceLevel maps the Importance header to 1, 3 or 5.
func ImportanceLevel(value string) *int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return utils.Ptr(1)
	case "normal":
		return utils.Ptr(3)
	case "low":
		return utils.Ptr(5)
	}
	return nil
}

// PriorityLevel reads the leading integer of an X-Priority value, e.g.
// "1 (Highest)". Values outside 1..5 are dropped.
func PriorityLevel(value string) *int {
	match := leadingIntRegex.FindStringSubmatch(value)
	if match == nil {
		return nil
	}
	p, err := strconv.Atoi(match[1])
	if err != nil || p < 1 || p > 5 {
		return nil
	}
	return &p
}

// header errors are swallowed for the advisory headers
func firstHeader(remote interfaces.IMAPMessage, name string) string {
	values, err := remote.Header(name)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}

func importance(remote interfaces.IMAPMessage) *int {
	return ImportanceLevel(firstHeader(remote, "Importance"))
}

func priority(remote interfaces.IMAPMessage) *int {
	return PriorityLevel(firstHeader(remote, "X-Priority"))
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
