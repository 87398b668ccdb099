package share

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/tripkeeper/internal/model"
)

// importMessage turns an RFC 5322 message into a note holding the
// subject and text body, plus one document per attachment.
func (i *Importer) importMessage(ctx context.Context, journeyID string, r io.Reader, res *Result) error {
	if r == nil {
		return errors.New("shared message has no content")
	}
	mr, err := mail.CreateReader(r)
	if err != nil {
		return fmt.Errorf("parsing shared message: %w", err)
	}
	defer mr.Close()

	subject, _ := mr.Header.Subject()
	var from []string
	if addrs, err := mr.Header.AddressList("From"); err == nil {
		for _, a := range addrs {
			from = append(from, a.String())
		}
	}
	date, _ := mr.Header.Date()

	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading shared message: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return fmt.Errorf("reading message body: %w", err)
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain") && textBody == "":
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			if err := i.importFile(ctx, journeyID, filename, contentType, "", part.Body, res); err != nil {
				return fmt.Errorf("importing attachment %q: %w", filename, err)
			}
		}
	}

	body := strings.TrimSpace(textBody)
	if body == "" {
		body = strings.TrimSpace(htmlBody)
	}
	var b strings.Builder
	if len(from) > 0 {
		fmt.Fprintf(&b, "From: %s\n", strings.Join(from, ", "))
	}
	if !date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", date.Format("2006-01-02 15:04"))
	}
	if b.Len() > 0 && body != "" {
		b.WriteString("\n")
	}
	b.WriteString(body)

	if strings.TrimSpace(subject) == "" && strings.TrimSpace(b.String()) == "" {
		return nil
	}
	title := strings.TrimSpace(subject)
	if title == "" {
		title = "Shared message"
	}
	n := &model.Note{JourneyID: journeyID, Title: title, Body: b.String()}
	if err := i.Repo.CreateNote(ctx, n); err != nil {
		return err
	}
	res.NoteIDs = append(res.NoteIDs, n.ID)
	return nil
}
