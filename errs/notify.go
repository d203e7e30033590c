package errs

import "log"

// Notifier is the toast surface. The web layer implements it by pushing
// notices down the browser feed socket.
type Notifier interface {
	Notify(message string)
}

// LogNotifier is the headless surface used before a feed is attached and
// in tests that do not care about notices.
type LogNotifier struct{}

func (LogNotifier) Notify(message string) {
	log.Println("notice:", message)
}

// Report normalizes raw and emits the message to the notifier.
func Report(n Notifier, raw any, fallbackMsg string) string {
	message := Normalize(raw, fallbackMsg)
	if n != nil {
		n.Notify(message)
	}
	return message
}

// ReportRemote runs the known-class classifier before the generic
// resolution, then emits. context names the operation for the generic
// fallback text, e.g. "database operation".
func ReportRemote(n Notifier, raw any, context string) string {
	if context == "" {
		context = "database operation"
	}
	if friendly, ok := Classify(raw); ok {
		if n != nil {
			n.Notify(friendly)
		}
		return friendly
	}
	return Report(n, raw, "A "+context+" error occurred. Please try again.")
}
