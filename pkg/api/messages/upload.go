package messages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"studybot/pkg/api"
)

func UploadBytes(ctx context.Context, httpClient *http.Client, apiBase, channelID, filename, contentType string, data []byte) (api.AttachmentRef, error) {
	return Upload(ctx, httpClient, apiBase, channelID, filename, contentType, bytes.NewReader(data))
}

// Upload streams r to /channels/:id/uploads as a multipart "file" field. The
// returned ref can be listed in OutgoingMessage.Attachments.
func Upload(ctx context.Context, httpClient *http.Client, apiBase, channelID, filename, contentType string, r io.Reader) (api.AttachmentRef, error) {
	if httpClient == nil {
		return api.AttachmentRef{}, fmt.Errorf("httpClient is required")
	}
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	channelID = strings.TrimSpace(channelID)
	filename = strings.TrimSpace(filename)
	if apiBase == "" || channelID == "" || filename == "" {
		return api.AttachmentRef{}, fmt.Errorf("apiBase, channelID and filename are required")
	}
	if r == nil {
		return api.AttachmentRef{}, fmt.Errorf("file reader is required")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	writeErrCh := make(chan error, 1)
	go func() {
		defer close(writeErrCh)

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		h.Set("Content-Type", contentType)

		part, err := writer.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = writer.Close()
		}
		if err != nil {
			_ = pw.CloseWithError(err)
			writeErrCh <- err
			return
		}
		_ = pw.Close()
	}()

	target := apiBase + "/channels/" + url.PathEscape(channelID) + "/uploads"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, pr)
	if err != nil {
		_ = pw.CloseWithError(err)
		return api.AttachmentRef{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return api.AttachmentRef{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err := waitWriteErr(ctx, writeErrCh); err != nil {
		return api.AttachmentRef{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return api.AttachmentRef{}, &api.HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out api.AttachmentRef
	if err := json.Unmarshal(body, &out); err != nil {
		return api.AttachmentRef{}, err
	}
	if strings.TrimSpace(out.Key) == "" {
		return api.AttachmentRef{}, fmt.Errorf("upload response missing key")
	}
	if out.Filename == "" {
		out.Filename = filename
	}
	if out.ContentType == "" {
		out.ContentType = contentType
	}
	out.ChannelID = channelID
	return out, nil
}

// Download fetches an attachment, preferring the authenticated uploads
// endpoint and falling back to its public URL. At most limit bytes are read.
func Download(ctx context.Context, httpClient *http.Client, apiBase string, att api.AttachmentRef, limit int64) ([]byte, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	key := strings.TrimSpace(att.Key)
	channelID := strings.TrimSpace(att.ChannelID)
	if key != "" && channelID != "" {
		u := fmt.Sprintf("%s/channels/%s/uploads/%s", strings.TrimRight(strings.TrimSpace(apiBase), "/"), url.PathEscape(channelID), url.PathEscape(key))
		if b, err := getLimited(ctx, httpClient, u, limit); err == nil {
			return b, nil
		}
	}

	rawURL := strings.TrimSpace(att.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("missing attachment url")
	}
	return getLimited(ctx, httpClient, rawURL, limit)
}

func getLimited(ctx context.Context, httpClient *http.Client, target string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &api.HTTPStatusError{StatusCode: resp.StatusCode, Body: "download failed"}
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func waitWriteErr(ctx context.Context, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
