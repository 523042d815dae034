package notify

import (
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridNotifier delivers messages through the SendGrid v3 API.
type SendGridNotifier struct {
	key  string
	from *sgmail.Email
}

func NewSendGridNotifier(key, fromName, fromEmail string) *SendGridNotifier {
	return &SendGridNotifier{
		key:  key,
		from: sgmail.NewEmail(fromName, fromEmail),
	}
}

// Send delivers asynchronously; a failed send is logged and dropped,
// matching the fail-soft policy everywhere else.
func (n *SendGridNotifier) Send(msg Message) {
	go func() {
		to := sgmail.NewEmail(msg.ToName, msg.ToEmail)
		content := sgmail.NewSingleEmail(n.from, msg.Subject, to, msg.Text, "")

		client := sendgrid.NewSendClient(n.key)
		resp, err := client.Send(content)
		if err != nil {
			log.Printf("[NOTIFY] sendgrid send failed for %s: %v", msg.ToEmail, err)
			return
		}
		if resp.StatusCode >= http.StatusBadRequest {
			log.Printf("[NOTIFY] sendgrid returned %d for %s", resp.StatusCode, msg.ToEmail)
		}
	}()
}
