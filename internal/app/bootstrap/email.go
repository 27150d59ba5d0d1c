package bootstrap

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/medipulse/internal/config"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// BuildEmailSender picks the patient email provider. Misconfiguration falls
// back to the log-only sender.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewLogEmailSender(logger)
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn("SENDGRID_API_KEY not set; email disabled")
	case "ses":
		if loadAWS == nil || cfg.SESFromEmail == "" {
			logger.Warn("SES selected without SES_FROM_EMAIL; email disabled")
			break
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			logger.Warn("aws config unavailable; email disabled", "error", err)
			break
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{FromEmail: cfg.SESFromEmail}, logger)
	}
	return notify.NewLogEmailSender(logger)
}
