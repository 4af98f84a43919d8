package notificator

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/logger"
)

const sendTimeout = 30 * time.Second

// Notificator delivers migration reports to every configured channel.
// Either channel may be nil.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
	EmailNotificator    *EmailNotificator
}

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator, emailNotif *EmailNotificator) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif, EmailNotificator: emailNotif}
}

// safeCall runs a function with panic recovery
func (n *Notificator) safeCall(fn func() error, context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	if err := fn(); err != nil {
		n.logger.Error("Failed to send report", "context", context, "error", err)
	}
}

func (n *Notificator) SendReport(report *models.Report) {
	message := report.String()

	if n.TelegramNotificator != nil {
		n.safeCall(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			return n.TelegramNotificator.SendNotification(ctx, message)
		}, "telegramReport")
	}
	if n.EmailNotificator != nil {
		n.safeCall(func() error {
			return n.EmailNotificator.SendNotification(reportSubject, message)
		}, "emailReport")
	}
}
