package mailservice

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSendEmail(t *testing.T) {
	mockParser := new(MockTemplate)
	mockDialer := new(MockDialer)

	mailer := Mail{
		dialer: mockDialer,
		parser: mockParser,
		sender: "Showcase <no-reply@example.com>",
	}

	data := welcomeData{Username: "alice", Level: "editor"}
	mockParser.On("ParseTemplate", welcomeTemplate, data).Return(bytes.NewBufferString("Subject"), bytes.NewBufferString("Plain"), bytes.NewBufferString("<p>HTML</p>"), nil)

	mockDialer.On("DialAndSend", mock.MatchedBy(func(msgs []*mail.Message) bool {
		if len(msgs) != 1 {
			return false
		}
		m := msgs[0]
		return len(m.GetHeader("To")) == 1 && m.GetHeader("To")[0] == "alice@example.com" &&
			m.GetHeader("Subject")[0] == "Subject" &&
			m.GetHeader("From")[0] == "Showcase <no-reply@example.com>"
	})).Return(nil)

	err := mailer.send("alice@example.com", data, welcomeTemplate)
	assert.NoError(t, err)

	mockParser.AssertExpectations(t)
	mockDialer.AssertExpectations(t)
}

func TestSendEmailErrors(t *testing.T) {
	t.Run("template error", func(t *testing.T) {
		mockParser := new(MockTemplate)
		mockDialer := new(MockDialer)
		mockParser.On("ParseTemplate", mock.Anything, mock.Anything).Return(nil, nil, nil, errors.New("missing template"))

		mailer := Mail{dialer: mockDialer, parser: mockParser, sender: "no-reply@example.com"}

		assert.Error(t, mailer.send("alice@example.com", nil, "missing.html"))
		mockDialer.AssertNotCalled(t, "DialAndSend", mock.Anything)
	})

	t.Run("dial error", func(t *testing.T) {
		mockParser := new(MockTemplate)
		mockDialer := new(MockDialer)
		mockParser.On("ParseTemplate", mock.Anything, mock.Anything).Return(bytes.NewBufferString("s"), bytes.NewBufferString("p"), bytes.NewBufferString("h"), nil)
		mockDialer.On("DialAndSend", mock.Anything).Return(errors.New("connection refused"))

		mailer := Mail{dialer: mockDialer, parser: mockParser, sender: "no-reply@example.com"}

		err := mailer.send("alice@example.com", nil, welcomeTemplate)
		assert.ErrorContains(t, err, "alice@example.com")
	})
}
