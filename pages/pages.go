package pages

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Template names understood by gin's HTML renderer.
const MessagePage = "message.html"

//go:embed templates/*
var files embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(files, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(files, "templates/*.txt"))
)

// HTML returns the parsed HTML templates for gin's SetHTMLTemplate.
func HTML() *htmltemplate.Template {
	return htmlTemplates
}

// Message is the data for MessagePage.
type Message struct {
	Title    string
	Heading  string
	Body     string
	LinkURL  string
	LinkText string
}

func SuppressSuccess(siteURL string) Message {
	return Message{
		Title:    "Reminders stopped",
		Heading:  "You won't get more reminders about this cart",
		Body:     "Your cart is still saved if you change your mind.",
		LinkURL:  siteURL + "/cart",
		LinkText: "View my cart",
	}
}

func SuppressError(detail string) Message {
	return Message{
		Title:   "Link problem",
		Heading: "We couldn't update your reminder settings",
		Body:    detail,
	}
}

func UnsubscribeSuccess(siteURL string, already bool) Message {
	body := "You have been removed from our mailing list. You will not receive further marketing emails."
	if already {
		body = "This address was already unsubscribed. No further action is needed."
	}
	return Message{
		Title:    "Unsubscribed",
		Heading:  "You're unsubscribed",
		Body:     body,
		LinkURL:  siteURL,
		LinkText: "Back to this week's deal",
	}
}

func UnsubscribeError(detail string) Message {
	return Message{
		Title:   "Link problem",
		Heading: "We couldn't process your unsubscribe request",
		Body:    detail,
	}
}

// ReminderItem is one cart line in the reminder email.
type ReminderItem struct {
	Name      string
	Quantity  int
	LineTotal string
}

// Reminder is the data for the abandoned-cart reminder email.
type Reminder struct {
	Email          string
	Items          []ReminderItem
	Total          string
	DealEndsAt     string
	ResumeURL      string
	StopURL        string
	UnsubscribeURL string
}

// RenderReminder returns the HTML and plain-text bodies of the reminder email.
func RenderReminder(data Reminder) (string, string, error) {
	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, "reminder_email.html", data); err != nil {
		return "", "", fmt.Errorf("render reminder html: %w", err)
	}
	if err := textTemplates.ExecuteTemplate(&text, "reminder_email.txt", data); err != nil {
		return "", "", fmt.Errorf("render reminder text: %w", err)
	}
	return html.String(), text.String(), nil
}

// FormatCents renders an amount in cents as dollars, e.g. 123456 -> "$1,234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	dollars := fmt.Sprintf("%d", cents/100)
	for i := len(dollars) - 3; i > 0; i -= 3 {
		dollars = dollars[:i] + "," + dollars[i:]
	}
	return fmt.Sprintf("%s$%s.%02d", sign, dollars, cents%100)
}
