package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MediaAttachment identifies a downloadable photo or video attached to a
// message. MimeType is Telegram's hint when available and empty otherwise.
type MediaAttachment struct {
	FileID   string
	MimeType string
}

// SelectMedia picks the analyzable attachment from a message: the
// best-resolution photo size, a video, or a video note. The second return
// is false when the message carries none of these.
func SelectMedia(msg *models.Message) (MediaAttachment, bool) {
	if len(msg.Photo) > 0 {
		var best models.PhotoSize
		bestQuality := 0
		for _, photo := range msg.Photo {
			if q := photo.Width * photo.Height; q > bestQuality {
				bestQuality = q
				best = photo
			}
		}
		return MediaAttachment{FileID: best.FileID}, true
	}
	if msg.Video != nil {
		return MediaAttachment{FileID: msg.Video.FileID, MimeType: msg.Video.MimeType}, true
	}
	if msg.VideoNote != nil {
		return MediaAttachment{FileID: msg.VideoNote.FileID}, true
	}
	return MediaAttachment{}, false
}

// DownloadFile downloads a file from Telegram's file API using the provided
// file ID. It returns the file data, detected MIME type, and any error
// encountered.
func DownloadFile(ctx context.Context, b *bot.Bot, token, fileID string) (data []byte, mimeType string, err error) {
	if token == "" {
		return nil, "", fmt.Errorf("empty token provided for file download")
	}
	if fileID == "" {
		return nil, "", fmt.Errorf("empty fileID provided for file download")
	}
	if ctx.Err() != nil {
		return nil, "", fmt.Errorf("context cancelled before file download: %w", ctx.Err())
	}

	downloadCtx, cancel := context.WithTimeout(ctx, mediaDownloadTimeout)
	defer cancel()

	fileObj, err := b.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file info from Telegram: %w", err)
	}
	if fileObj.FilePath == "" {
		return nil, "", fmt.Errorf("empty file path returned from Telegram for file ID %s", fileID)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", token, fileObj.FilePath)
	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create HTTP request for %s: %w", url, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("unexpected status code %d from Telegram file API: %s", resp.StatusCode, string(bodyBytes))
	}

	// Telegram's getFile API serves files up to 20 MB.
	const maxDownloadSize = 20 * 1024 * 1024
	data, err = io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file data: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("received empty file data")
	}

	mimeType = http.DetectContentType(data)
	return data, mimeType, nil
}
