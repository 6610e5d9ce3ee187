package imap

import (
	"context"
	"fmt"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/tracing"
)

type folder struct {
	s      *session
	name   string
	status *imap.MailboxStatus
}

func (f *folder) Name() string {
	return f.name
}

// Messages fetches envelope, flags, size and UID for sequence numbers 1..n.
// Bodies are fetched lazily per message.
func (f *folder) Messages(ctx context.Context, limit int) ([]interfaces.IMAPMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPFolder.Messages")
	defer span.Finish()
	tracing.TagComponentIMAP(span)
	tracing.TagFolder(span, f.name)
	span.SetTag("limit", limit)

	total := f.status.Messages
	if total == 0 {
		return nil, nil
	}
	upper := total
	if limit > 0 && uint32(limit) < total {
		upper = uint32(limit)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(1, upper)

	items := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchFlags,
		imap.FetchEnvelope,
		imap.FetchRFC822Size,
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	c := f.s.c
	c.Timeout = f.s.dialer.FetchTimeout
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var fetched []*imap.Message
	for msg := range messages {
		fetched = append(fetched, msg)
	}
	c.Timeout = f.s.dialer.CommandTimeout

	if err := <-done; err != nil {
		err = fmt.Errorf("error fetching messages from %s: %w", f.name, err)
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(fetched, func(i, j int) bool {
		return fetched[i].SeqNum < fetched[j].SeqNum
	})

	result := make([]interfaces.IMAPMessage, 0, len(fetched))
	for _, msg := range fetched {
		result = append(result, &message{f: f, msg: msg})
	}
	span.SetTag("messages.count", len(result))
	return result, nil
}

func (f *folder) Count(ctx context.Context) (uint32, error) {
	return f.status.Messages, nil
}

func (f *folder) CountUnseen(ctx context.Context) (uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPFolder.CountUnseen")
	defer span.Finish()
	tracing.TagComponentIMAP(span)
	tracing.TagFolder(span, f.name)

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	ids, err := f.s.c.Search(criteria)
	if err != nil {
		err = fmt.Errorf("error counting unseen messages in %s: %w", f.name, err)
		tracing.TraceErr(span, err)
		return 0, err
	}
	span.SetTag("unseen.count", len(ids))
	return uint32(len(ids)), nil
}
