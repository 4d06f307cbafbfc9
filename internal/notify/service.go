package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"studiopass/internal/logger"
	"studiopass/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Type    string    `json:"type"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Service queues member emails through Redis so that a slow SMTP server
// never holds up a sale or a check-in. A background worker drains the
// queue.
type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

// Send queues an arbitrary email. The domain helpers below are preferred;
// this exists for operational checks.
func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	return s.enqueue(ctx, EmailJob{
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Type:    "manual",
		Created: time.Now(),
	})
}

func (s *Service) enqueue(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", job.To, err)
		metrics.RecordEmail(job.Type, "queue_error")
		return err
	}

	logger.Infof("Email queued: %s to %s", job.Subject, job.To)
	metrics.RecordEmail(job.Type, "queued")
	return nil
}

// Start drains the queue until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send email to %s: %v", job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
		} else {
			logger.Errorf("Email to %s failed after %d attempts", job.To, maxTries)
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Infof("Email sent to %s", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

// SendPurchaseConfirmation is queued right after a sale commits.
func (s *Service) SendPurchaseConfirmation(ctx context.Context, email, name, packageName string, endDate time.Time, eventsCount int) error {
	subject := "Your " + packageName + " pass is ready"
	body := fmt.Sprintf(`Hi %s,

Thanks for your purchase!

Pass: %s
Valid until: %s
`, name, packageName, endDate.Format("Jan 2, 2006"))

	if eventsCount > 0 {
		body += fmt.Sprintf("\nWe have booked your %d recurring classes. Check the schedule in the app.\n", eventsCount)
	}

	body += `
Show the QR code in the app at the front desk to check in.

- StudioPass Team`

	return s.enqueue(ctx, EmailJob{
		To:      email,
		Name:    name,
		Subject: subject,
		Body:    body,
		Type:    "purchase_confirmation",
		Created: time.Now(),
	})
}

// SendExpiryReminder nudges members whose pass runs out soon.
func (s *Service) SendExpiryReminder(ctx context.Context, email, name, packageName string, endDate time.Time) error {
	subject := "Your " + packageName + " pass expires soon"
	body := fmt.Sprintf(`Hi %s,

Your %s pass expires on %s.

Renew at the front desk or in the app to keep your spot in class.

- StudioPass Team`, name, packageName, endDate.Format("Jan 2, 2006"))

	return s.enqueue(ctx, EmailJob{
		To:      email,
		Name:    name,
		Subject: subject,
		Body:    body,
		Type:    "expiry_reminder",
		Created: time.Now(),
	})
}

// SendClassCancellation tells booked members their class was cancelled.
func (s *Service) SendClassCancellation(ctx context.Context, email, name, className string, when time.Time) error {
	subject := "Class cancelled: " + className
	body := fmt.Sprintf(`Hi %s,

Unfortunately your class has been cancelled:

Class: %s
Time: %s

No session was deducted from your pass.

- StudioPass Team`, name, className, when.Format("Jan 2, 2006 at 3:04 PM"))

	return s.enqueue(ctx, EmailJob{
		To:      email,
		Name:    name,
		Subject: subject,
		Body:    body,
		Type:    "class_cancellation",
		Created: time.Now(),
	})
}
