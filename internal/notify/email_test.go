package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medipulse/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	if sender := NewSendGridSender(SendGridConfig{FromEmail: "desk@example.com"}, nil); sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_FromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "desk@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, "MediPulse", sender.from.Name)

	sender = NewSendGridSender(SendGridConfig{APIKey: "k", FromEmail: "desk@example.com", FromName: "Front Desk"}, nil)
	assert.Equal(t, "Front Desk", sender.from.Name)
}

type fakeSendGrid struct {
	msg    *mail.SGMailV3
	status int
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.msg = m
	return &rest.Response{StatusCode: f.status}, nil
}

func TestSendGridSender_Send(t *testing.T) {
	api := &fakeSendGrid{status: 202}
	sender := newSendGridSender(api, SendGridConfig{FromEmail: "desk@example.com"}, logging.Discard())

	require.NoError(t, sender.Send(context.Background(), EmailMessage{To: "p@example.com", ToName: "Pat", Subject: "Booked", Body: "plain"}))
	require.NotNil(t, api.msg)
	assert.Equal(t, "Booked", api.msg.Subject)
	assert.Equal(t, "p@example.com", api.msg.Personalizations[0].To[0].Address)

	api.status = 401
	assert.ErrorContains(t, sender.Send(context.Background(), EmailMessage{To: "p@example.com"}), "401")
}

func TestSendGridSender_NilClient(t *testing.T) {
	err := (&SendGridSender{}).Send(context.Background(), EmailMessage{To: "p@example.com"})
	assert.ErrorIs(t, err, ErrEmailNotConfigured)

	var nilSender *SendGridSender
	assert.ErrorIs(t, nilSender.Send(context.Background(), EmailMessage{To: "p@example.com"}), ErrEmailNotConfigured)
}

func TestNotificationEmailLinksMeeting(t *testing.T) {
	n := Notification{Title: "Appointment Confirmed", Message: "Your appointment is accepted. Join Link: https://meet.google.com/abc-defg-hij"}
	msg := notificationEmail("p@example.com", "Pat", n)

	assert.Equal(t, "MediPulse: Appointment Confirmed", msg.Subject)
	assert.Contains(t, msg.Body, "Hello Pat,")
	assert.Contains(t, msg.Body, "Join Link: https://meet.google.com/abc-defg-hij")
	assert.Contains(t, msg.HTML, `<a href="https://meet.google.com/abc-defg-hij">`)
	assert.NotContains(t, msg.HTML, "Join Link:")
}

func TestLogEmailSender(t *testing.T) {
	sender := NewLogEmailSender(logging.Discard())
	assert.NoError(t, sender.Send(context.Background(), EmailMessage{To: "p@example.com", Subject: "hi"}))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_BuildsMessage(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "desk@example.com"}, logging.Discard())

	err := sender.Send(context.Background(), EmailMessage{To: "p@example.com", Subject: "Booked", Body: "See you soon"})
	require.NoError(t, err)
	require.NotNil(t, api.input)
	assert.Equal(t, `"MediPulse" <desk@example.com>`, aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"p@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Booked", aws.ToString(api.input.Content.Simple.Subject.Data))
	assert.Equal(t, "See you soon", aws.ToString(api.input.Content.Simple.Body.Text.Data))
	assert.Nil(t, api.input.Content.Simple.Body.Html)
}

func TestSESSender_WrapsError(t *testing.T) {
	api := &fakeSES{err: errors.New("throttled")}
	sender := newSESSender(api, SESConfig{FromEmail: "desk@example.com"}, logging.Discard())
	err := sender.Send(context.Background(), EmailMessage{To: "p@example.com", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "throttled")
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}
