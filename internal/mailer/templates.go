package mailer

import (
	"fmt"
	"strings"
	"time"
)

// Listing is the part of a property the notification mails mention.
type Listing struct {
	ID          string
	Name        string
	Area        string
	Price       float64
	OwnerName   string
	Notes       string
	SubmittedAt *time.Time
}

// Templates renders the plain-text bodies of outgoing mail.
type Templates struct {
	FrontendURL  string
	SupportEmail string
}

func (t Templates) PropertySubmitted(to string, l Listing) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", l.OwnerName)
	fmt.Fprintf(&b, "We received your property %q and it is now waiting for review.\n\n", l.Name)
	writeListing(&b, l)
	if l.SubmittedAt != nil {
		fmt.Fprintf(&b, "Submitted: %s\n", l.SubmittedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "\nTrack it from your dashboard: %s/dashboard/my-properties\n", t.FrontendURL)
	return Message{To: []string{to}, Subject: "Property received: " + l.Name, Body: b.String()}
}

func (t Templates) PropertyApproved(to string, l Listing) Message {
	notes := l.Notes
	if notes == "" {
		notes = "Your property was approved."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", l.OwnerName)
	fmt.Fprintf(&b, "Your property %q is now live.\n\n", l.Name)
	writeListing(&b, l)
	fmt.Fprintf(&b, "Notes: %s\n\n", notes)
	fmt.Fprintf(&b, "View it: %s/property/%s\n", t.FrontendURL, l.ID)
	return Message{To: []string{to}, Subject: "Property approved: " + l.Name, Body: b.String()}
}

func (t Templates) PropertyRejected(to string, l Listing) Message {
	reason := l.Notes
	if reason == "" {
		reason = "No reason given."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", l.OwnerName)
	fmt.Fprintf(&b, "Your property %q was not approved.\n\n", l.Name)
	writeListing(&b, l)
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	fmt.Fprintf(&b, "You can fix it and resubmit: %s/dashboard/my-rejected\n", t.FrontendURL)
	fmt.Fprintf(&b, "Questions? Write to %s\n", t.SupportEmail)
	return Message{To: []string{to}, Subject: "Property rejected: " + l.Name, Body: b.String()}
}

func (t Templates) PasswordReset(to, name, token string, ttl time.Duration) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Use the link below to choose a new password. It expires in %s.\n\n", ttl)
	fmt.Fprintf(&b, "%s/reset-password?token=%s\n\n", t.FrontendURL, token)
	b.WriteString("If you did not ask for this, ignore this message.\n")
	return Message{To: []string{to}, Subject: "Reset your password", Body: b.String()}
}

// ContactReceived forwards a contact form submission to the inbox.
func (t Templates) ContactReceived(inbox, name, email, phone, subject, body string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\n", name, email)
	if phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", phone)
	}
	fmt.Fprintf(&b, "\n%s\n", body)
	return Message{
		To:      []string{inbox},
		Subject: fmt.Sprintf("New message from %s: %s", name, subject),
		Body:    b.String(),
	}
}

func writeListing(b *strings.Builder, l Listing) {
	area := l.Area
	if area == "" {
		area = "Unspecified"
	}
	fmt.Fprintf(b, "Area: %s\nPrice: %.2f\n", area, l.Price)
}
