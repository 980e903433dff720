package session

import (
	"errors"
	"fmt"

	"chat-widget/internal/integrations/answer"
)

var (
	ErrEmptyQuestion = errors.New("session: question must not be empty")
	ErrBusy          = errors.New("session: a question is already awaiting an answer")
	ErrNotStarted    = errors.New("session: not started")
	ErrClosed        = errors.New("session: closed")
)

// ErrorKind classifies why a turn did not produce an answer.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindNetwork
	KindService
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindService:
		return "service"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// classify maps an answer-service error onto the failure taxonomy. Anything
// the service actually answered (bad status, undecodable body) is a service
// failure; everything else never got a usable reply.
func classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		return KindService
	}
	if errors.Is(err, answer.ErrMalformedResponse) {
		return KindService
	}
	return KindNetwork
}
