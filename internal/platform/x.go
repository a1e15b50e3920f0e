package platform

import (
	"context"
	"net/http"
	"unicode/utf8"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

const (
	defaultXBaseURL = "https://api.x.com"

	xMaxTextLength = 280
	xMaxMediaItems = 4
)

// XAdapter publishes posts to X via the v2 post-creation endpoint.
type XAdapter struct {
	client  *http.Client
	baseURL string
}

func NewXAdapter(client *http.Client, baseURL string) *XAdapter {
	if baseURL == "" {
		baseURL = defaultXBaseURL
	}
	return &XAdapter{client: client, baseURL: baseURL}
}

func (a *XAdapter) Platform() string { return PlatformX }

type xCreateRequest struct {
	Text  string    `json:"text"`
	Media *xMediaIn `json:"media,omitempty"`
}

type xMediaIn struct {
	MediaURLs []string `json:"media_urls"`
}

type xCreateResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (a *XAdapter) Publish(ctx context.Context, cred domain.Credential, content domain.Content) domain.DispatchOutcome {
	text := content.Text
	if content.LinkURL != "" {
		text = text + " " + content.LinkURL
	}

	if utf8.RuneCountInString(text) > xMaxTextLength {
		return domain.Failure(PlatformX, domain.FailureValidation, "text exceeds 280 characters")
	}
	if len(content.Media) > xMaxMediaItems {
		return domain.Failure(PlatformX, domain.FailureValidation, "at most 4 media items per post")
	}

	req := xCreateRequest{Text: text}
	if len(content.Media) > 0 {
		urls := make([]string, len(content.Media))
		for i, m := range content.Media {
			urls[i] = m.URL
		}
		req.Media = &xMediaIn{MediaURLs: urls}
	}

	var resp xCreateResponse
	status, err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/2/tweets", cred.AccessToken, req, &resp)
	if !succeeded(status, err) {
		return remoteFailure(PlatformX, status, err)
	}

	return domain.Success(PlatformX, resp.Data.ID)
}
