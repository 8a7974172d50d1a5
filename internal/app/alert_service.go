package app

import (
	"fmt"

	domainTelegram "compliance_reminders/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// AlertService tells operators about failed runs through a Telegram chat.
type AlertService struct {
	client domainTelegram.Client
	chatID int64
	logger *logrus.Entry
}

func NewAlertService(client domainTelegram.Client, chatID int64, logger *logrus.Entry) *AlertService {
	return &AlertService{client: client, chatID: chatID, logger: logger}
}

// RunFailed sends one alert. Send errors are logged and swallowed.
func (a *AlertService) RunFailed(title string, result *RunResult) {
	text := fmt.Sprintf("Reminder run failed: %s\nPeriod: %s\nRun: %s\nError: %s",
		title, result.PeriodKey, result.RunID, result.Message)
	if result.EmailsFailed > 0 {
		text += fmt.Sprintf("\nUndelivered recipients: %d", result.EmailsFailed)
	}

	if err := a.client.SendMessage(a.chatID, text); err != nil {
		a.logger.WithError(err).WithField("chat_id", a.chatID).Error("Failed to send run failure alert")
		return
	}
	a.logger.WithField("run_id", result.RunID).Info("Run failure alert sent")
}
