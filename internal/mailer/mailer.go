// Package mailer delivers badge notifications. Delivery is best-effort by
// contract: the service logs failures and never lets them fail the operation
// that triggered the mail.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"laurel/internal/badges/models"
	"laurel/pkg/email"
)

// LogMailer writes mail to the structured log instead of an SMTP relay.
// Deployments front this with a real delivery pipeline by swapping the
// service's Mailer option.
type LogMailer struct {
	logger  *slog.Logger
	baseURL string
}

func NewLogMailer(logger *slog.Logger, baseURL string) *LogMailer {
	return &LogMailer{logger: logger, baseURL: baseURL}
}

// SendClaimInvitation invites an email address to claim a deferred award.
// The greeting is derived from the address since no account exists yet.
func (m *LogMailer) SendClaimInvitation(ctx context.Context, address string, badge *models.Badge, claimCode string) error {
	first, last := email.DeriveNameFromEmail(address)
	m.logger.InfoContext(ctx, "claim invitation",
		"to", address,
		"greeting", fmt.Sprintf("%s %s", first, last),
		"badge", badge.Slug,
		"claim_url", fmt.Sprintf("%s/claims/%s", m.baseURL, claimCode),
	)
	return nil
}

// SendAwardNotice tells a user they were awarded a badge.
func (m *LogMailer) SendAwardNotice(ctx context.Context, user *models.User, badge *models.Badge) error {
	m.logger.InfoContext(ctx, "award notice",
		"to", user.Email,
		"username", user.Username,
		"badge", badge.Slug,
	)
	return nil
}

// SendNominationNotice tells a nominee they were nominated.
func (m *LogMailer) SendNominationNotice(ctx context.Context, nominee *models.User, badge *models.Badge) error {
	m.logger.InfoContext(ctx, "nomination notice",
		"to", nominee.Email,
		"username", nominee.Username,
		"badge", badge.Slug,
	)
	return nil
}
