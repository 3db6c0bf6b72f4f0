package util

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// IsRemoteURL reports whether source should be downloaded instead of opened.
func IsRemoteURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// RemoteFileName picks a local file name for a URL, keeping its extension.
func RemoteFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "input.mp4"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "input.mp4"
	}
	if filepath.Ext(name) == "" {
		name += ".mp4"
	}
	return SanitizeFileName(name)
}

// DownloadFile streams rawURL into outputFile.
func DownloadFile(ctx context.Context, rawURL, outputFile, proxy string) error {
	client := resty.New().
		SetTimeout(30 * time.Minute).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)
	if proxy != "" {
		client.SetProxy(proxy)
	}

	resp, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return fmt.Errorf("download %s: unexpected status %s", rawURL, resp.Status())
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	if _, err = out.ReadFrom(body); err != nil {
		out.Close()
		_ = os.Remove(outputFile)
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	return out.Close()
}

// SanitizeFileName keeps letters, digits, dot, dash and underscore.
func SanitizeFileName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	s := strings.Trim(sb.String(), "._")
	if s == "" {
		return "video"
	}
	return s
}
