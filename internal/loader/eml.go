package loader

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"strings"
)

// extractEmail reads an RFC 5322 message, keeping the subject line and
// the first text/plain body it finds. HTML-only messages fall back to
// the raw body.
func extractEmail(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open eml: %w", err)
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return "", fmt.Errorf("parse eml: %w", err)
	}

	body, err := emailBody(msg)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if subj := msg.Header.Get("Subject"); subj != "" {
		b.WriteString("Subject: " + subj + "\n\n")
	}
	b.WriteString(strings.TrimSpace(body))
	return b.String(), nil
}

func emailBody(msg *mail.Message) (string, error) {
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", fmt.Errorf("read eml body: %w", err)
		}
		return string(data), nil
	}

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var fallback string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read eml part: %w", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return "", fmt.Errorf("read eml part body: %w", err)
		}
		ct, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if ct == "text/plain" {
			return string(data), nil
		}
		if fallback == "" {
			fallback = string(data)
		}
	}
	if fallback == "" {
		return "", errors.New("eml has no readable body")
	}
	return fallback, nil
}
