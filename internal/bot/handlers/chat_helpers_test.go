package handlers_test

import (
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/dkoksal/mira/internal/bot/handlers"
)

func TestSelectMedia(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      *models.Message
		wantOK   bool
		wantFile string
		wantMime string
	}{
		{
			name: "picks best resolution photo",
			msg: &models.Message{Photo: []models.PhotoSize{
				{FileID: "thumb", Width: 90, Height: 90},
				{FileID: "full", Width: 1280, Height: 960},
				{FileID: "medium", Width: 320, Height: 240},
			}},
			wantOK:   true,
			wantFile: "full",
		},
		{
			name:     "video carries its MIME type hint",
			msg:      &models.Message{Video: &models.Video{FileID: "vid", MimeType: "video/mp4"}},
			wantOK:   true,
			wantFile: "vid",
			wantMime: "video/mp4",
		},
		{
			name:     "video note has no hint",
			msg:      &models.Message{VideoNote: &models.VideoNote{FileID: "note"}},
			wantOK:   true,
			wantFile: "note",
		},
		{
			name: "photo wins over video",
			msg: &models.Message{
				Photo: []models.PhotoSize{{FileID: "pic", Width: 100, Height: 100}},
				Video: &models.Video{FileID: "vid"},
			},
			wantOK:   true,
			wantFile: "pic",
		},
		{
			name:   "plain text has no media",
			msg:    &models.Message{Text: "hello"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			media, ok := handlers.SelectMedia(tt.msg)
			if ok != tt.wantOK {
				t.Fatalf("SelectMedia ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if media.FileID != tt.wantFile {
				t.Errorf("FileID = %q, want %q", media.FileID, tt.wantFile)
			}
			if media.MimeType != tt.wantMime {
				t.Errorf("MimeType = %q, want %q", media.MimeType, tt.wantMime)
			}
		})
	}
}
