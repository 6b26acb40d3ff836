// Package upload publishes finished videos to YouTube through the Data
// API v3.
package upload

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"videoforge/internal/config"
)

// Metadata describes one video to publish.
type Metadata struct {
	Title       string
	Description string
	Tags        []string

	// ScheduledTimeUTC, when set on a public upload, schedules the
	// publish instead of going live immediately (RFC 3339).
	ScheduledTimeUTC string
}

// Uploader pushes videos to YouTube using OAuth credentials from the
// environment: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and
// YOUTUBE_REFRESH_TOKEN.
type Uploader struct {
	cfg config.UploadConfig
	log *zap.SugaredLogger
}

// New creates the uploader.
func New(cfg config.UploadConfig, log *zap.SugaredLogger) *Uploader {
	return &Uploader{cfg: cfg, log: log}
}

// Run uploads videoFile and returns the resulting video id and watch URL.
func (u *Uploader) Run(ctx context.Context, videoFile string, meta Metadata) (string, string, error) {
	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	snippet := &youtube.VideoSnippet{
		Title:                meta.Title,
		Description:          meta.Description,
		Tags:                 meta.Tags,
		CategoryId:           u.cfg.CategoryID,
		DefaultLanguage:      u.cfg.DefaultLanguage,
		DefaultAudioLanguage: u.cfg.DefaultLanguage,
	}
	vstatus := &youtube.VideoStatus{
		PrivacyStatus:           u.cfg.Visibility,
		SelfDeclaredMadeForKids: u.cfg.MadeForKids,
	}
	if meta.ScheduledTimeUTC != "" && u.cfg.Visibility == "public" {
		// scheduled uploads must start out private
		vstatus.PrivacyStatus = "private"
		vstatus.PublishAt = meta.ScheduledTimeUTC
		u.log.Infow("upload scheduled", "publish_at", meta.ScheduledTimeUTC)
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		u.log.Infow("uploading video", "title", meta.Title, "size_mb", float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, &youtube.Video{
		Snippet: snippet,
		Status:  vstatus,
	})
	call.NotifySubscribers(u.cfg.NotifySubscribers)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	u.log.Infow("upload finished", "video_id", uploaded.Id, "url", url)
	return uploaded.Id, url, nil
}

func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN must all be set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force an immediate refresh
	}
	return conf.Client(ctx, token), nil
}
