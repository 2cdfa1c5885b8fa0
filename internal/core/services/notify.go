package services

import (
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// notify sends a notification, falling back to the log when no notifier is wired.
func notify(n driven.Notifier, level domain.NotificationLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if n == nil {
		if level == domain.NotificationError {
			logger.Error("%s", msg)
		} else {
			logger.Info("%s", msg)
		}
		return
	}
	n.Notify(domain.Notification{Level: level, Message: msg})
}
