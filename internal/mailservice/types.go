package mailservice

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/sushihentaime/showcase/internal/common"
)

const (
	welcomeTemplate = "welcome_email.html"

	maxRetries = 5
	baseDelay  = 500 * time.Millisecond
)

type MailService struct {
	mb      common.MessageConsumer
	m       Mailer
	logger  MailLogger
	siteURL string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	// sleep waits for d or until ctx is done, reporting whether the full delay elapsed.
	sleep func(ctx context.Context, d time.Duration) bool
}

type MailLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type Mail struct {
	mu     sync.Mutex
	dialer Dialer
	parser TemplateParser
	sender string
}

type Mailer interface {
	send(recipient string, data any, templateFile string) error
}

type Template struct{}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type TemplateParser interface {
	ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error)
}

// userCreated mirrors the user.created event payload.
type userCreated struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Level    string `json:"level"`
}

type welcomeData struct {
	Username string
	Level    string
	SiteURL  string
}
