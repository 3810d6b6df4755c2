package attachment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPStorageClient uploads files to the external file storage service via
// multipart POST. Auth headers are supplied by configuration; this client
// does not own credential lifecycle.
type HTTPStorageClient struct {
	uploadURL string
	authToken string
	client    *http.Client
}

func NewHTTPStorageClient(uploadURL, authToken string, timeout time.Duration) *HTTPStorageClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStorageClient{
		uploadURL: uploadURL,
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
	}
}

type storageResponse struct {
	URL string `json:"url"`
}

// Store uploads the file and returns the stored reference URL.
func (c *HTTPStorageClient) Store(ctx context.Context, req *UploadRequest) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", req.FileName)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return "", fmt.Errorf("failed to write file payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("storage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("storage returned status %d", resp.StatusCode)
	}

	var stored storageResponse
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return "", fmt.Errorf("failed to decode storage response: %w", err)
	}
	if stored.URL == "" {
		return "", fmt.Errorf("storage response missing url")
	}

	return stored.URL, nil
}
