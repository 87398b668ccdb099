// Package share imports content handed to the share extension into a
// journey: text and links become notes, files become documents and mail
// messages become a note plus one document per attachment.
package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/tripkeeper/internal/analytics"
	"github.com/nhle/tripkeeper/internal/documents"
	"github.com/nhle/tripkeeper/internal/model"
)

// Kind is the type of a shared item.
type Kind int

const (
	KindText Kind = iota
	KindURL
	KindFile
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindURL:
		return "url"
	case KindFile:
		return "file"
	case KindMessage:
		return "message"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Item is one piece of shared content.
type Item struct {
	Kind     Kind
	Title    string
	Text     string // KindText, KindURL
	FileName string // KindFile
	MIMEType string // KindFile
	Body     io.Reader
}

// Result lists the rows an import created.
type Result struct {
	NoteIDs     []string
	DocumentIDs []string
}

// Repository is the part of the store the importer writes to.
type Repository interface {
	GetJourney(ctx context.Context, id string) (*model.Journey, error)
	CreateNote(ctx context.Context, n *model.Note) error
	CreateDocument(ctx context.Context, d *model.Document) error
}

// Importer writes shared items into a journey.
type Importer struct {
	Repo Repository
	Docs *documents.Storage
	Log  logrus.FieldLogger
	Sink analytics.Sink
}

// Import stores item under journeyID.
func (i *Importer) Import(ctx context.Context, journeyID string, item Item) (Result, error) {
	var res Result
	if _, err := i.Repo.GetJourney(ctx, journeyID); err != nil {
		return res, fmt.Errorf("importing into journey %s: %w", journeyID, err)
	}

	var err error
	switch item.Kind {
	case KindText, KindURL:
		err = i.importNote(ctx, journeyID, item, &res)
	case KindFile:
		err = i.importFile(ctx, journeyID, item.FileName, item.MIMEType, item.Title, item.Body, &res)
	case KindMessage:
		err = i.importMessage(ctx, journeyID, item.Body, &res)
	default:
		err = fmt.Errorf("unsupported item kind %s", item.Kind)
	}
	if err != nil {
		return res, err
	}

	i.logger().WithFields(logrus.Fields{
		"journey":   journeyID,
		"kind":      item.Kind.String(),
		"notes":     len(res.NoteIDs),
		"documents": len(res.DocumentIDs),
	}).Info("Shared item imported")
	i.sink().Track(analytics.EventShareImported, map[string]string{"kind": item.Kind.String()})
	return res, nil
}

func (i *Importer) importNote(ctx context.Context, journeyID string, item Item, res *Result) error {
	text := strings.TrimSpace(item.Text)
	if text == "" {
		return errors.New("shared text is empty")
	}
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = noteTitle(item.Kind, text)
	}
	n := &model.Note{JourneyID: journeyID, Title: title, Body: text}
	if err := i.Repo.CreateNote(ctx, n); err != nil {
		return err
	}
	res.NoteIDs = append(res.NoteIDs, n.ID)
	return nil
}

func (i *Importer) importFile(ctx context.Context, journeyID, name, mimeType, title string, body io.Reader, res *Result) error {
	if body == nil {
		return fmt.Errorf("shared file %q has no content", name)
	}
	if name == "" {
		name = "shared"
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	fileName, size, err := i.Docs.Save(journeyID, name, body)
	if err != nil {
		return err
	}
	d := &model.Document{
		JourneyID: journeyID,
		Title:     title,
		FileName:  fileName,
		MIMEType:  mimeType,
		Size:      size,
	}
	if err := i.Repo.CreateDocument(ctx, d); err != nil {
		if derr := i.Docs.Delete(fileName); derr != nil {
			i.logger().WithError(derr).WithField("file", fileName).Warn("Removing orphaned document file failed")
		}
		return err
	}
	res.DocumentIDs = append(res.DocumentIDs, d.ID)
	return nil
}

// Detect guesses the kind of raw shared content from its name and bytes.
// An empty name means the content came from a pipe.
func Detect(name string, data []byte) Item {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".eml" || looksLikeMessage(data) {
		return Item{Kind: KindMessage, Body: bytes.NewReader(data)}
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	isText := strings.HasPrefix(mimeType, "text/plain")

	if isText && (name == "" || ext == ".txt" || ext == ".url") {
		text := strings.TrimSpace(string(data))
		if isURL(text) {
			return Item{Kind: KindURL, Text: text}
		}
		return Item{Kind: KindText, Text: text}
	}
	if name == "" {
		name = "shared"
	}
	return Item{
		Kind:     KindFile,
		FileName: filepath.Base(name),
		MIMEType: mimeType,
		Body:     bytes.NewReader(data),
	}
}

func looksLikeMessage(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	s := string(head)
	hasFrom := strings.HasPrefix(s, "From:") || strings.Contains(s, "\nFrom:")
	hasSubject := strings.HasPrefix(s, "Subject:") || strings.Contains(s, "\nSubject:")
	return hasFrom && hasSubject
}

func isURL(s string) bool {
	if strings.ContainsAny(s, " \n\t") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func noteTitle(kind Kind, text string) string {
	if kind == KindURL {
		if u, err := url.Parse(text); err == nil && u.Host != "" {
			return u.Host
		}
	}
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	const maxTitle = 60
	if r := []rune(line); len(r) > maxTitle {
		line = string(r[:maxTitle]) + "…"
	}
	return strings.TrimSpace(line)
}

func (i *Importer) logger() logrus.FieldLogger {
	if i.Log == nil {
		return logrus.StandardLogger()
	}
	return i.Log
}

func (i *Importer) sink() analytics.Sink {
	if i.Sink == nil {
		return analytics.Nop{}
	}
	return i.Sink
}
