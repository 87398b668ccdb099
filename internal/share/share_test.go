package share_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tripkeeper/internal/analytics"
	"github.com/nhle/tripkeeper/internal/documents"
	"github.com/nhle/tripkeeper/internal/share"
	"github.com/nhle/tripkeeper/internal/store"
	"github.com/nhle/tripkeeper/tests/testutil"
)

type fixture struct {
	store    *store.SQLiteStore
	docs     *documents.Storage
	importer *share.Importer
	rec      *analytics.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := testutil.NewTestStore(t)
	docs := documents.New(afero.NewMemMapFs(), "/shared/Documents")
	rec := &analytics.Recorder{}
	return fixture{
		store: s,
		docs:  docs,
		rec:   rec,
		importer: &share.Importer{
			Repo: s,
			Docs: docs,
			Log:  testutil.QuietLogger(),
			Sink: rec,
		},
	}
}

const message = "From: Airline <noreply@airline.example>\r\n" +
	"To: traveler@example.com\r\n" +
	"Subject: Your booking AB12CD\r\n" +
	"Date: Mon, 02 Jun 2025 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Flight TP123 departs 09:00.\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"boarding.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4 fake\r\n" +
	"--XYZ--\r\n"

func TestImport_Text(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := testutil.NewJourney(t, f.store, "Share")

	res, err := f.importer.Import(ctx, j.ID, share.Item{Kind: share.KindText, Text: "Pack the adapter\nand the charger"})
	require.NoError(t, err)
	require.Len(t, res.NoteIDs, 1)

	n, err := f.store.GetNote(ctx, res.NoteIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Pack the adapter", n.Title)
	assert.Equal(t, "Pack the adapter\nand the charger", n.Body)
	assert.Equal(t, 1, f.rec.Count(analytics.EventShareImported))
}

func TestImport_URL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := testutil.NewJourney(t, f.store, "Share")

	res, err := f.importer.Import(ctx, j.ID, share.Item{Kind: share.KindURL, Text: "https://maps.example.com/place/1"})
	require.NoError(t, err)

	n, err := f.store.GetNote(ctx, res.NoteIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "maps.example.com", n.Title)
}

func TestImport_File(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := testutil.NewJourney(t, f.store, "Share")

	res, err := f.importer.Import(ctx, j.ID, share.Item{
		Kind: share.KindFile, FileName: "visa.pdf", Body: strings.NewReader("PDF"),
	})
	require.NoError(t, err)
	require.Len(t, res.DocumentIDs, 1)

	d, err := f.store.GetDocument(ctx, res.DocumentIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "visa", d.Title)
	assert.Equal(t, j.ID+"_visa.pdf", d.FileName)
	assert.Equal(t, "application/pdf", d.MIMEType)
	assert.Equal(t, int64(3), d.Size)

	rc, err := f.docs.Read(d.FileName)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "PDF", string(b))
}

func TestImport_Message(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	j := testutil.NewJourney(t, f.store, "Share")

	res, err := f.importer.Import(ctx, j.ID, share.Item{Kind: share.KindMessage, Body: strings.NewReader(message)})
	require.NoError(t, err)
	require.Len(t, res.NoteIDs, 1)
	require.Len(t, res.DocumentIDs, 1)

	n, err := f.store.GetNote(ctx, res.NoteIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Your booking AB12CD", n.Title)
	assert.Contains(t, n.Body, "noreply@airline.example")
	assert.Contains(t, n.Body, "Flight TP123 departs 09:00.")

	d, err := f.store.GetDocument(ctx, res.DocumentIDs[0])
	require.NoError(t, err)
	assert.Equal(t, j.ID+"_boarding.pdf", d.FileName)
	assert.Equal(t, "application/pdf", d.MIMEType)
}

func TestImport_UnknownJourney(t *testing.T) {
	f := newFixture(t)

	_, err := f.importer.Import(context.Background(), "missing", share.Item{Kind: share.KindText, Text: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	names, err := f.docs.List("")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestImport_EmptyText(t *testing.T) {
	f := newFixture(t)
	j := testutil.NewJourney(t, f.store, "Share")

	_, err := f.importer.Import(context.Background(), j.ID, share.Item{Kind: share.KindText, Text: "   "})
	assert.Error(t, err)
	assert.Zero(t, f.rec.Count(analytics.EventShareImported))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want share.Kind
	}{
		{name: "piped text", data: "remember the museum", want: share.KindText},
		{name: "piped link", data: "https://example.com/x\n", want: share.KindURL},
		{name: "eml file", file: "booking.eml", data: "whatever", want: share.KindMessage},
		{name: "piped message", data: "From: a@b.c\nSubject: hi\n\nbody", want: share.KindMessage},
		{name: "pdf", file: "ticket.pdf", data: "%PDF-1.4", want: share.KindFile},
		{name: "txt file", file: "notes.txt", data: "a note", want: share.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := share.Detect(tt.file, []byte(tt.data))
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}
