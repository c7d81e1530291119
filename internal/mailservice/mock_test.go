package mailservice

import (
	"bytes"
	"sync"

	"github.com/go-mail/mail/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
	"github.com/sushihentaime/showcase/internal/common"
)

type MockTemplate struct {
	mock.Mock
}

func (m *MockTemplate) ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error) {
	args := m.Called(name, data)
	if args.Get(0) == nil {
		return nil, nil, nil, args.Error(3)
	}
	return args.Get(0).(*bytes.Buffer), args.Get(1).(*bytes.Buffer), args.Get(2).(*bytes.Buffer), args.Error(3)
}

type MockDialer struct {
	mock.Mock
}

func (d *MockDialer) DialAndSend(m ...*mail.Message) error {
	args := d.Called(m)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) send(recipient string, data any, templateFile string) error {
	args := m.Called(recipient, data, templateFile)
	return args.Error(0)
}

type MockLogger struct {
	mu       sync.Mutex
	infos    []string
	errors   []string
	observed chan string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{observed: make(chan string, 64)}
}

func (l *MockLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.mu.Unlock()
	l.observed <- msg
}

func (l *MockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
	l.observed <- msg
}

// MockMessageConsumer delivers its bodies on the returned channel and records acknowledgements.
type MockMessageConsumer struct {
	mock.Mock
	Bodies []string
	Acker  *MockAcknowledger
}

func (m *MockMessageConsumer) Consume(key common.BindingKey, exchange common.Exchange, queue common.Queue) (<-chan amqp.Delivery, error) {
	args := m.Called(key, exchange, queue)
	if err := args.Error(0); err != nil {
		return nil, err
	}

	msgs := make(chan amqp.Delivery, len(m.Bodies))
	for i, body := range m.Bodies {
		msgs <- amqp.Delivery{Acknowledger: m.Acker, DeliveryTag: uint64(i + 1), Body: []byte(body)}
	}

	return msgs, nil
}

type MockAcknowledger struct {
	mu    sync.Mutex
	Acked []uint64
}

func (a *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Acked = append(a.Acked, tag)
	return nil
}

func (a *MockAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	return nil
}

func (a *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	return nil
}

func (a *MockAcknowledger) acked() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint64(nil), a.Acked...)
}
