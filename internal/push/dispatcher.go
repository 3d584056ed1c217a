package push

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/famcash/push-server/internal/metrics"
	"github.com/famcash/push-server/internal/models"
)

// Dispatcher validates a delivery request, partitions the family's endpoints
// by platform, and runs both channel senders concurrently.
type Dispatcher struct {
	registry Registry
	mobile   *MobileSender
	browser  *BrowserSender
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given registry and senders.
func NewDispatcher(registry Registry, mobile *MobileSender, browser *BrowserSender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		mobile:   mobile,
		browser:  browser,
		logger:   logger,
	}
}

// Deliver fans one notification out to every endpoint of the family. Only
// validation and registry-read failures are returned; channel and
// per-endpoint failures degrade to reduced counts in the result.
func (d *Dispatcher) Deliver(ctx context.Context, req models.DeliveryRequest) (models.DeliveryResult, error) {
	var result models.DeliveryResult

	if req.FamilyID == "" {
		return result, &ValidationError{Field: "family_id"}
	}
	if req.Notification.Title == "" {
		return result, &ValidationError{Field: "notification.title"}
	}

	endpoints, err := d.registry.ListEndpoints(ctx, req.FamilyID, req.SenderToken)
	if err != nil {
		return result, &RegistryError{Err: err}
	}
	if len(endpoints) == 0 {
		return result, nil
	}

	logger := d.logger.With().
		Str("delivery_id", ulid.Make().String()).
		Str("family_id", req.FamilyID).
		Logger()

	var mobileTokens, webTokens []string
	for _, e := range endpoints {
		switch e.Platform {
		case models.PlatformIOS, models.PlatformAndroid:
			mobileTokens = append(mobileTokens, e.Token)
		case models.PlatformBrowser:
			webTokens = append(webTokens, e.Token)
		default:
			logger.Warn().Str("platform", string(e.Platform)).Msg("skipping endpoint with unknown platform")
		}
	}

	result.MobileTotal = len(mobileTokens)
	result.WebTotal = len(webTokens)
	metrics.FanoutsTotal.Inc()

	// Both channels run regardless of the other's outcome; neither can fail
	// the request.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Mobile = d.mobile.Send(ctx, mobileTokens, req.Notification)
	}()
	go func() {
		defer wg.Done()
		result.Web = d.browser.Send(ctx, webTokens, req.Notification)
	}()
	wg.Wait()

	result.Sent = result.Mobile + result.Web

	logger.Info().
		Int("sent", result.Sent).
		Int("mobile", result.Mobile).
		Int("mobile_total", result.MobileTotal).
		Int("web", result.Web).
		Int("web_total", result.WebTotal).
		Msg("delivery completed")

	return result, nil
}
