package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"readaloud/internal/domain/chapter"
)

// HTTPProvider fetches chapters from the reading service's book detail endpoint
type HTTPProvider struct {
	baseURL    string
	deviceID   string
	httpClient *http.Client
	log        logrus.FieldLogger
}

type detailResponse struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
}

func NewHTTPProvider(baseURL, deviceID string, timeout time.Duration, log logrus.FieldLogger) *HTTPProvider {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (p *HTTPProvider) FetchChapter(ctx context.Context, bookID string, index int) (chapter.Chapter, error) {
	q := url.Values{}
	q.Set("device_id", p.deviceID)
	q.Set("book_id", bookID)
	q.Set("chapter_id", strconv.Itoa(index))
	endpoint := p.baseURL + "/book/detail?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return chapter.Chapter{}, fetchError(bookID, index, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return chapter.Chapter{}, fetchError(bookID, index, fmt.Errorf("failed to fetch chapter: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return chapter.Chapter{}, fetchError(bookID, index, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return chapter.Chapter{}, fetchError(bookID, index, fmt.Errorf("failed to read response: %w", err))
	}

	var detail detailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		return chapter.Chapter{}, fetchError(bookID, index, fmt.Errorf("failed to parse JSON: %w", err))
	}

	p.log.WithFields(logrus.Fields{
		"book":    bookID,
		"chapter": index,
		"bytes":   len(detail.Content),
	}).Debug("fetched chapter")

	return chapter.Chapter{
		BookID:  bookID,
		Index:   index,
		Title:   detail.Title,
		Content: detail.Content,
	}, nil
}
