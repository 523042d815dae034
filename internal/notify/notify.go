// Package notify delivers account emails. The portal only sends two today:
// the approval and rejection notices for enrollment applications.
package notify

import "log"

// Message is a single outbound email
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
}

// Notifier sends messages without blocking the caller's request path;
// delivery failures are logged, never surfaced.
type Notifier interface {
	Send(msg Message)
}

// ConsoleNotifier logs messages instead of delivering them; the default
// for development and tests.
type ConsoleNotifier struct{}

func (ConsoleNotifier) Send(msg Message) {
	log.Printf("[NOTIFY] to=%s subject=%q\n%s", msg.ToEmail, msg.Subject, msg.Text)
}

// Recorder captures messages for tests.
type Recorder struct {
	Messages []Message
}

func (r *Recorder) Send(msg Message) {
	r.Messages = append(r.Messages, msg)
}
