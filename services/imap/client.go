package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
)

const (
	defaultDialTimeout    = 30 * time.Second
	defaultKeepAlive      = 30 * time.Second
	defaultCommandTimeout = 30 * time.Second
	defaultFetchTimeout   = 60 * time.Second
	logoutTimeout         = 5 * time.Second
)

var (
	_ interfaces.IMAPDialer  = (*Dialer)(nil)
	_ interfaces.IMAPSession = (*session)(nil)
	_ interfaces.IMAPFolder  = (*folder)(nil)
	_ interfaces.IMAPMessage = (*message)(nil)
)

// Dialer is the go-imap implementation of interfaces.IMAPDialer.
type Dialer struct {
	log            logger.Logger
	DialTimeout    time.Duration
	CommandTimeout time.Duration
	FetchTimeout   time.Duration
}

func NewDialer(log logger.Logger) *Dialer {
	return &Dialer{
		log:            log,
		DialTimeout:    defaultDialTimeout,
		CommandTimeout: defaultCommandTimeout,
		FetchTimeout:   defaultFetchTimeout,
	}
}

// Connect dials, negotiates TLS per params.Encryption and logs in.
func (d *Dialer) Connect(ctx context.Context, params dto.ConnectionParams) (interfaces.IMAPSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPDialer.Connect")
	defer span.Finish()
	tracing.TagComponentIMAP(span)
	span.SetTag("server", params.Host)
	span.SetTag("port", params.Port)
	span.SetTag("encryption", params.Encryption.String())

	serverAddr := net.JoinHostPort(params.Host, strconv.Itoa(params.Port))

	dialer := &net.Dialer{
		Timeout:   d.DialTimeout,
		KeepAlive: defaultKeepAlive,
	}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	tlsConfig := &tls.Config{
		ServerName:         params.Host,
		InsecureSkipVerify: !params.ValidateCert,
	}

	var c *client.Client
	var err error

	switch params.Encryption {
	case enum.EmailSecuritySSL, enum.EmailSecurityTLS:
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	case enum.EmailSecurityStartTLS, enum.EmailSecurityNone:
		c, err = client.DialWithDialer(dialer, serverAddr)
	default:
		err = fmt.Errorf("unsupported encryption %q", params.Encryption)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	c.Timeout = d.CommandTimeout

	if params.Encryption == enum.EmailSecurityStartTLS {
		if err = c.StartTLS(tlsConfig); err != nil {
			c.Logout()
			tracing.TraceErr(span, err)
			return nil, fmt.Errorf("starttls error: %w", err)
		}
	}

	if err = ctx.Err(); err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, err
	}

	caps, err := c.Capability()
	if err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}
	span.SetTag("server.capabilities", fmt.Sprintf("%v", caps))

	if err = c.Login(params.Username, params.Password); err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("login error: %w", err)
	}

	d.log.Debugw("IMAP session opened", "server", serverAddr, "username", params.Username)

	return &session{
		c:      c,
		log:    d.log,
		addr:   serverAddr,
		dialer: d,
	}, nil
}
