package notify

import (
	"context"
	"strings"

	"github.com/wolfman30/medipulse/pkg/logging"
)

// Delivery controls the side effects of one emission.
type Delivery struct {
	// Chime plays the alert once for the whole batch.
	Chime bool
	// EmailTo, when set, mails the first notification to the patient.
	EmailTo     string
	EmailToName string
}

// Emitter fans notifications out to the inbox, the chime and email.
type Emitter struct {
	inbox  *Inbox
	chime  Chime
	email  EmailSender
	logger *logging.Logger
}

// NewEmitter wires the delivery channels. chime and email may be nil.
func NewEmitter(inbox *Inbox, chime Chime, email EmailSender, logger *logging.Logger) *Emitter {
	if inbox == nil {
		panic("notify: inbox required")
	}
	if chime == nil {
		chime = NopChime{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Emitter{inbox: inbox, chime: chime, email: email, logger: logger}
}

// Inbox returns the backing inbox.
func (e *Emitter) Inbox() *Inbox { return e.inbox }

// Emit records ns and runs the requested side effects. Email failures are
// logged only.
func (e *Emitter) Emit(ctx context.Context, d Delivery, ns ...Notification) {
	if len(ns) == 0 {
		return
	}
	e.inbox.Push(ctx, ns...)
	if d.Chime {
		e.chime.Play()
	}
	to := strings.TrimSpace(d.EmailTo)
	if to == "" || e.email == nil {
		return
	}
	n := ns[0]
	err := e.email.Send(ctx, notificationEmail(to, d.EmailToName, n))
	if err != nil {
		e.logger.Warn("notification email failed", "to", to, "title", n.Title, "error", err)
	}
}
