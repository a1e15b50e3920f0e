package platform

import (
	"context"
	"net/http"
	"time"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

const defaultInstagramBaseURL = "https://graph.facebook.com/v19.0"

// Instagram publishing is a two-step protocol: create a media container, then
// publish it. Video containers are processed asynchronously, so the adapter
// polls the container status until it is finished or the deadline expires.
const instagramPollInterval = 2 * time.Second

// InstagramAdapter publishes to the IG user identified by the credential's
// routing target. Media is required; text-only posts are rejected up front.
type InstagramAdapter struct {
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
}

func NewInstagramAdapter(client *http.Client, baseURL string) *InstagramAdapter {
	if baseURL == "" {
		baseURL = defaultInstagramBaseURL
	}
	return &InstagramAdapter{client: client, baseURL: baseURL, pollInterval: instagramPollInterval}
}

func (a *InstagramAdapter) Platform() string { return PlatformInstagram }

type igContainerRequest struct {
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type igContainerResponse struct {
	ID string `json:"id"`
}

type igStatusResponse struct {
	StatusCode string `json:"status_code"` // IN_PROGRESS | FINISHED | ERROR
}

type igPublishRequest struct {
	CreationID string `json:"creation_id"`
}

type igPublishResponse struct {
	ID string `json:"id"`
}

func (a *InstagramAdapter) Publish(ctx context.Context, cred domain.Credential, content domain.Content) domain.DispatchOutcome {
	if len(content.Media) == 0 {
		return domain.Failure(PlatformInstagram, domain.FailureValidation, "instagram posts require media")
	}
	if cred.RoutingTarget == "" {
		return domain.Failure(PlatformInstagram, domain.FailureValidation, "missing ig user id in credential routing target")
	}

	media := content.Media[0]
	containerReq := igContainerRequest{Caption: content.Text}
	switch media.Kind {
	case domain.MediaKindVideo:
		containerReq.VideoURL = media.URL
	default:
		containerReq.ImageURL = media.URL
	}

	userBase := a.baseURL + "/" + cred.RoutingTarget

	var container igContainerResponse
	status, err := doJSON(ctx, a.client, http.MethodPost, userBase+"/media", cred.AccessToken, containerReq, &container)
	if !succeeded(status, err) {
		return remoteFailure(PlatformInstagram, status, err)
	}

	// Video containers transcode asynchronously; wait until the container
	// reports FINISHED before publishing.
	if media.Kind == domain.MediaKindVideo {
		if outcome, ok := a.awaitContainer(ctx, cred, container.ID); !ok {
			return outcome
		}
	}

	var published igPublishResponse
	publishReq := igPublishRequest{CreationID: container.ID}
	status, err = doJSON(ctx, a.client, http.MethodPost, userBase+"/media_publish", cred.AccessToken, publishReq, &published)
	if !succeeded(status, err) {
		return remoteFailure(PlatformInstagram, status, err)
	}

	return domain.Success(PlatformInstagram, published.ID)
}

// awaitContainer polls the container status until FINISHED. The second return
// is true when publishing may proceed; otherwise the outcome describes the
// failure.
func (a *InstagramAdapter) awaitContainer(ctx context.Context, cred domain.Credential, containerID string) (domain.DispatchOutcome, bool) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.Failure(PlatformInstagram, domain.FailureTimeout, "timed out waiting for media processing"), false
		case <-ticker.C:
		}

		var statusResp igStatusResponse
		url := a.baseURL + "/" + containerID + "?fields=status_code"
		status, err := doJSON(ctx, a.client, http.MethodGet, url, cred.AccessToken, nil, &statusResp)
		if !succeeded(status, err) {
			return remoteFailure(PlatformInstagram, status, err), false
		}

		switch statusResp.StatusCode {
		case "FINISHED":
			return domain.DispatchOutcome{}, true
		case "ERROR":
			return domain.Failure(PlatformInstagram, domain.FailureRemote, "media processing failed"), false
		}
		// IN_PROGRESS: keep polling.
	}
}
