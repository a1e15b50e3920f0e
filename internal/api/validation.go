package api

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/socailstream/social-stream-backend/internal/domain"
)

func validateCreateJob(req CreateJobRequest, knownPlatforms map[string]bool) error {
	if req.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if _, err := uuid.Parse(req.OwnerID); err != nil {
		return fmt.Errorf("invalid owner_id: %w", err)
	}

	if req.Text == "" && len(req.Media) == 0 {
		return fmt.Errorf("text or media is required")
	}

	if req.LinkURL != "" {
		if err := validateHTTPURL(req.LinkURL); err != nil {
			return fmt.Errorf("invalid link_url: %w", err)
		}
	}

	for i, m := range req.Media {
		if err := validateHTTPURL(m.URL); err != nil {
			return fmt.Errorf("invalid media[%d].url: %w", i, err)
		}
		kind := domain.MediaKind(m.Kind)
		if kind != domain.MediaKindImage && kind != domain.MediaKindVideo {
			return fmt.Errorf("media[%d].kind must be 'image' or 'video', got %q", i, m.Kind)
		}
	}

	if len(req.TargetPlatforms) == 0 {
		return fmt.Errorf("target_platforms is required")
	}
	for _, plat := range req.TargetPlatforms {
		if !knownPlatforms[plat] {
			return fmt.Errorf("unknown platform %q", plat)
		}
	}

	if req.DueAt != "" {
		if _, err := time.Parse(time.RFC3339, req.DueAt); err != nil {
			return fmt.Errorf("invalid due_at: %w", err)
		}
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if err := validateTimezone(tz); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	if req.Recurrence != "" {
		if err := validateRecurrence(req.Recurrence); err != nil {
			return fmt.Errorf("invalid recurrence: %w", err)
		}
	}

	return nil
}

func validateUpsertCredential(req UpsertCredentialRequest, knownPlatforms map[string]bool) error {
	if req.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if _, err := uuid.Parse(req.OwnerID); err != nil {
		return fmt.Errorf("invalid owner_id: %w", err)
	}

	if req.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	if !knownPlatforms[req.Platform] {
		return fmt.Errorf("unknown platform %q", req.Platform)
	}

	if req.AccessToken == "" {
		return fmt.Errorf("access_token is required")
	}

	if req.ExpiresAt != "" {
		if _, err := time.Parse(time.RFC3339, req.ExpiresAt); err != nil {
			return fmt.Errorf("invalid expires_at: %w", err)
		}
	}

	return nil
}

func validateRecurrence(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := parser.Parse(expr)
	return err
}

func validateTimezone(tz string) error {
	_, err := time.LoadLocation(tz)
	return err
}

func validateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
