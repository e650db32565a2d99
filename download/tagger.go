package download

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"

	"github.com/xeptore/ytmdl/types"
)

var ErrTagMismatch = errors.New("written tags do not read back")

// Tagger writes the metadata of a track into the audio file at path.
type Tagger interface {
	Tag(path string, tags types.TagSet, cover types.Cover) error
}

type ID3Tagger struct{}

func (ID3Tagger) Tag(path string, tags types.TagSet, cover types.Cover) (err error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true}) //nolint:exhaustruct
	if nil != err {
		return fmt.Errorf("failed to open file for tagging: %w", err)
	}
	defer func() {
		if closeErr := t.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close tagged file: %v", closeErr))
		}
	}()

	t.SetVersion(4)
	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	writeFrames(t, tags, cover)

	if err := t.Save(); nil != err {
		return fmt.Errorf("failed to save tags: %w", err)
	}

	return verify(path, tags)
}

func writeFrames(t *id3v2.Tag, tags types.TagSet, cover types.Cover) {
	text := func(id, value string) {
		t.DeleteFrames(id)
		if value != "" {
			t.AddTextFrame(id, id3v2.EncodingUTF8, value)
		}
	}

	text("TIT2", tags.Title)
	text("TPE1", tags.Artist())
	text("TPE2", tags.AlbumArtist)
	text("TALB", tags.Album)
	text("TRCK", trackNumber(tags))
	text("TDRC", tags.Date)
	text("TCON", tags.Genre)
	text("TPUB", tags.Label)

	t.DeleteFrames("APIC")
	if !cover.IsZero() {
		mime := cover.MIME
		if mime == "" {
			mime = mimetype.Detect(cover.Data).String()
		}
		t.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mime,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover.Data,
		})
	}
}

func trackNumber(tags types.TagSet) string {
	if tags.TrackNumber <= 0 {
		return ""
	}
	if tags.TrackTotal <= 0 {
		return strconv.Itoa(tags.TrackNumber)
	}

	return strconv.Itoa(tags.TrackNumber) + "/" + strconv.Itoa(tags.TrackTotal)
}

func verify(path string, want types.TagSet) (err error) {
	f, err := os.Open(path)
	if nil != err {
		return fmt.Errorf("failed to open tagged file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close tagged file: %v", closeErr))
		}
	}()

	m, err := tag.ReadFrom(f)
	if nil != err {
		return fmt.Errorf("failed to read back tags: %w", err)
	}

	if got := m.Title(); got != want.Title {
		return fmt.Errorf("%w: title is %q, expected %q", ErrTagMismatch, got, want.Title)
	}

	return nil
}
