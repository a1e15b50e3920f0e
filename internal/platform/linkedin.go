package platform

import (
	"context"
	"net/http"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

const defaultLinkedInBaseURL = "https://api.linkedin.com"

// LinkedInAdapter publishes UGC posts on behalf of the author URN carried in
// the credential's routing target.
//
// Video is not supported through this endpoint; jobs carrying video fail fast
// with a validation outcome instead of burning a remote call.
type LinkedInAdapter struct {
	client  *http.Client
	baseURL string
}

func NewLinkedInAdapter(client *http.Client, baseURL string) *LinkedInAdapter {
	if baseURL == "" {
		baseURL = defaultLinkedInBaseURL
	}
	return &LinkedInAdapter{client: client, baseURL: baseURL}
}

func (a *LinkedInAdapter) Platform() string { return PlatformLinkedIn }

type linkedInPostRequest struct {
	Author  string           `json:"author"`
	Text    linkedInText     `json:"commentary"`
	Content *linkedInMedia   `json:"content,omitempty"`
	Article *linkedInArticle `json:"article,omitempty"`
}

type linkedInText struct {
	Text string `json:"text"`
}

type linkedInMedia struct {
	MediaURLs []string `json:"media_urls"`
}

type linkedInArticle struct {
	Source string `json:"source"`
}

type linkedInPostResponse struct {
	ID string `json:"id"`
}

func (a *LinkedInAdapter) Publish(ctx context.Context, cred domain.Credential, content domain.Content) domain.DispatchOutcome {
	if content.HasVideo() {
		return domain.Failure(PlatformLinkedIn, domain.FailureValidation, "video is not supported for linkedin posts")
	}
	if cred.RoutingTarget == "" {
		return domain.Failure(PlatformLinkedIn, domain.FailureValidation, "missing author urn in credential routing target")
	}

	req := linkedInPostRequest{
		Author: cred.RoutingTarget,
		Text:   linkedInText{Text: content.Text},
	}
	if len(content.Media) > 0 {
		urls := make([]string, len(content.Media))
		for i, m := range content.Media {
			urls[i] = m.URL
		}
		req.Content = &linkedInMedia{MediaURLs: urls}
	}
	if content.LinkURL != "" {
		req.Article = &linkedInArticle{Source: content.LinkURL}
	}

	var resp linkedInPostResponse
	status, err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/rest/posts", cred.AccessToken, req, &resp)
	if !succeeded(status, err) {
		return remoteFailure(PlatformLinkedIn, status, err)
	}

	return domain.Success(PlatformLinkedIn, resp.ID)
}
