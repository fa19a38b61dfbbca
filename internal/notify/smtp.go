package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"jobalert-engine/internal/domain"
	"jobalert-engine/internal/secrets"
)

const digestSubject = "New jobs matching your alert"

// SMTPConfig is the slice of app config the mailer needs.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	From     string
	// RatePerMinute caps outbound messages so a big sweep cannot burst the
	// relay. Zero disables the limiter.
	RatePerMinute int
}

// SMTPNotifier sends plain-text digests through an SMTP relay. The account
// password comes from the OS keychain (or env fallback) at send time, never
// from the config file.
type SMTPNotifier struct {
	cfg     SMTPConfig
	account string
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewSMTPNotifier(cfg SMTPConfig, log *zap.Logger) *SMTPNotifier {
	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.RatePerMinute)
	}
	return &SMTPNotifier{
		cfg:     cfg,
		account: secrets.SMTPKeyringAccount(cfg.Username, cfg.Host),
		limiter: limiter,
		log:     log,
	}
}

func (n *SMTPNotifier) SendJobDigest(ctx context.Context, recipientEmail, recipientName string, jobs []domain.JobSummary) error {
	if strings.TrimSpace(recipientEmail) == "" {
		return fmt.Errorf("no recipient email")
	}
	if len(jobs) == 0 {
		return fmt.Errorf("empty digest")
	}

	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	password, err := secrets.GetSMTPPassword(n.account)
	if err != nil {
		return fmt.Errorf("smtp credentials: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(recipientEmail); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(digestSubject)
	msg.SetBodyString(mail.TypeTextPlain, digestBody(recipientName, jobs))

	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", recipientEmail, err)
	}

	n.log.Info("digest sent",
		zap.String("recipient", recipientEmail),
		zap.Int("jobs", len(jobs)),
	)
	return nil
}

// digestBody assembles the plain-text message. No templating: the fields of
// JobSummary are the whole contract.
func digestBody(recipientName string, jobs []domain.JobSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", recipientName)
	if len(jobs) == 1 {
		b.WriteString("A new job matches your alert:\n\n")
	} else {
		fmt.Fprintf(&b, "%d new jobs match your alert:\n\n", len(jobs))
	}
	for i, j := range jobs {
		fmt.Fprintf(&b, "%d. %s", i+1, j.Name)
		if j.CompanyName != "" {
			fmt.Fprintf(&b, " at %s", j.CompanyName)
		}
		b.WriteString("\n")
		if j.Location != "" {
			fmt.Fprintf(&b, "   Location: %s\n", j.Location)
		}
		if j.Salary > 0 {
			fmt.Fprintf(&b, "   Salary: %.0f\n", j.Salary)
		}
		if len(j.SkillNames) > 0 {
			fmt.Fprintf(&b, "   Skills: %s\n", strings.Join(j.SkillNames, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("You receive this because of your job alert subscription.\n")
	return b.String()
}
