package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seminar-ops/scheduling-api/internal/models"
	"github.com/seminar-ops/scheduling-api/pkg/config"
)

// Mailer delivers assignment notifications over SMTP. Delivery is
// best-effort; callers report failures in the response payload instead of
// failing the assignment.
type Mailer struct {
	addr string
	host string
	from string
}

// New constructs a Mailer from configuration.
func New(cfg config.MailConfig) *Mailer {
	return &Mailer{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		host: cfg.Host,
		from: cfg.From,
	}
}

// NotifyTrainerOfAssignment emails the trainer about their new course.
func (m *Mailer) NotifyTrainerOfAssignment(course models.Course, trainer models.Trainer, assignedBy string) error {
	if trainer.Email == "" {
		return fmt.Errorf("trainer email is missing")
	}
	if assignedBy == "" {
		assignedBy = "Scheduling team"
	}

	start := course.StartDate.UTC().Format("January 2, 2006")
	end := course.EndDate.UTC().Format("January 2, 2006")
	schedule := start
	if start != end {
		schedule = fmt.Sprintf("%s - %s", start, end)
	}
	subjects := "-"
	if len(course.Subject) > 0 {
		subjects = strings.Join(course.Subject, ", ")
	}
	notes := "No additional notes provided."
	if course.Notes != nil && strings.TrimSpace(*course.Notes) != "" {
		notes = strings.TrimSpace(*course.Notes)
	}

	body := strings.Join([]string{
		fmt.Sprintf("Hello %s,", trainer.Name),
		"",
		fmt.Sprintf("You have been assigned to the course %q.", course.Name),
		"",
		fmt.Sprintf("Dates: %s", schedule),
		fmt.Sprintf("Location: %s", course.Location),
		fmt.Sprintf("Participants: %d", course.Participants),
		fmt.Sprintf("Subjects: %s", subjects),
		fmt.Sprintf("Client pricing: %.2f", course.Price),
		fmt.Sprintf("Trainer compensation: %.2f", course.TrainerPrice),
		fmt.Sprintf("Notes: %s", notes),
		fmt.Sprintf("Assigned by: %s", assignedBy),
		"",
		"Please confirm your availability or share any constraints.",
		"Thank you.",
	}, "\r\n")

	headers := strings.Join([]string{
		fmt.Sprintf("From: Seminar Ops <%s>", m.from),
		fmt.Sprintf("To: %s <%s>", trainer.Name, trainer.Email),
		fmt.Sprintf("Subject: New course assignment: %s", course.Name),
		fmt.Sprintf("Date: %s", time.Now().UTC().Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), m.host),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}, "\r\n")

	msg := []byte(headers + "\r\n\r\n" + body + "\r\n")
	if err := smtp.SendMail(m.addr, nil, m.from, []string{trainer.Email}, msg); err != nil {
		return fmt.Errorf("send assignment email: %w", err)
	}
	return nil
}
