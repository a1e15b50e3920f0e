package platform

import (
	"context"
	"net/http"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

const defaultFacebookBaseURL = "https://graph.facebook.com/v19.0"

// FacebookAdapter publishes to the page feed identified by the credential's
// routing target.
type FacebookAdapter struct {
	client  *http.Client
	baseURL string
}

func NewFacebookAdapter(client *http.Client, baseURL string) *FacebookAdapter {
	if baseURL == "" {
		baseURL = defaultFacebookBaseURL
	}
	return &FacebookAdapter{client: client, baseURL: baseURL}
}

func (a *FacebookAdapter) Platform() string { return PlatformFacebook }

type facebookFeedRequest struct {
	Message   string   `json:"message"`
	Link      string   `json:"link,omitempty"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

type facebookFeedResponse struct {
	ID string `json:"id"`
}

func (a *FacebookAdapter) Publish(ctx context.Context, cred domain.Credential, content domain.Content) domain.DispatchOutcome {
	if cred.RoutingTarget == "" {
		return domain.Failure(PlatformFacebook, domain.FailureValidation, "missing page id in credential routing target")
	}

	req := facebookFeedRequest{
		Message: content.Text,
		Link:    content.LinkURL,
	}
	for _, m := range content.Media {
		req.MediaURLs = append(req.MediaURLs, m.URL)
	}

	var resp facebookFeedResponse
	url := a.baseURL + "/" + cred.RoutingTarget + "/feed"
	status, err := doJSON(ctx, a.client, http.MethodPost, url, cred.AccessToken, req, &resp)
	if !succeeded(status, err) {
		return remoteFailure(PlatformFacebook, status, err)
	}

	return domain.Success(PlatformFacebook, resp.ID)
}
