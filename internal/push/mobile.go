package push

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/famcash/push-server/internal/metrics"
	"github.com/famcash/push-server/internal/models"
)

// Gateway ticket error codes that mean the device will never receive pushes
// again. Anything else is treated as transient and the token is retained.
const (
	errDeviceNotRegistered = "DeviceNotRegistered"
	errInvalidCredentials  = "InvalidCredentials"
)

// gatewayMessage is one per-token entry in the batched gateway request.
type gatewayMessage struct {
	To       string `json:"to"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Sound    string `json:"sound,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// ticket is the gateway's per-token delivery receipt. Tickets come back in
// submission order, one per token.
type ticket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details *struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

// gatewayResponse wraps the ticket list.
type gatewayResponse struct {
	Data []ticket `json:"data"`
}

// MobileSender delivers to iOS and Android devices through the push gateway
// in one batched request per fan-out.
type MobileSender struct {
	gatewayURL string
	client     *http.Client
	timeout    time.Duration
	registry   Registry
	logger     zerolog.Logger
}

// NewMobileSender creates a mobile channel sender.
func NewMobileSender(gatewayURL string, timeout time.Duration, registry Registry, logger zerolog.Logger) *MobileSender {
	return &MobileSender{
		gatewayURL: gatewayURL,
		client:     &http.Client{},
		timeout:    timeout,
		registry:   registry,
		logger:     logger,
	}
}

// Send posts one batched request for all tokens and classifies the returned
// tickets. It returns the number of delivered messages. Gateway failures are
// logged and count as zero delivered; they never fail the overall request.
func (s *MobileSender) Send(ctx context.Context, tokens []string, n models.Notification) int {
	if len(tokens) == 0 {
		return 0
	}

	messages := make([]gatewayMessage, len(tokens))
	for i, token := range tokens {
		messages[i] = gatewayMessage{
			To:       token,
			Title:    n.Title,
			Body:     n.Message,
			Sound:    "default",
			Priority: "high",
		}
	}

	body, err := json.Marshal(messages)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode gateway request")
		return 0
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build gateway request")
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Int("tokens", len(tokens)).Msg("gateway request failed")
		metrics.DeliveriesTotal.WithLabelValues("mobile", "failed").Add(float64(len(tokens)))
		return 0
	}
	defer resp.Body.Close()
	metrics.GatewayLatency.Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn().Int("status", resp.StatusCode).Int("tokens", len(tokens)).Msg("gateway returned non-success status")
		metrics.DeliveriesTotal.WithLabelValues("mobile", "failed").Add(float64(len(tokens)))
		return 0
	}

	var gw gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode gateway response")
		metrics.DeliveriesTotal.WithLabelValues("mobile", "failed").Add(float64(len(tokens)))
		return 0
	}

	delivered := 0
	var prune []string
	for i, t := range gw.Data {
		if i >= len(tokens) {
			break
		}
		switch {
		case t.Status == "ok":
			delivered++
			metrics.DeliveriesTotal.WithLabelValues("mobile", "sent").Inc()
		case t.Details != nil && (t.Details.Error == errDeviceNotRegistered || t.Details.Error == errInvalidCredentials):
			prune = append(prune, tokens[i])
			metrics.DeliveriesTotal.WithLabelValues("mobile", "stale").Inc()
			s.logger.Info().Str("reason", t.Details.Error).Msg("mobile token is permanently invalid")
		default:
			metrics.DeliveriesTotal.WithLabelValues("mobile", "failed").Inc()
			s.logger.Warn().Str("status", t.Status).Str("message", t.Message).Msg("mobile delivery failed, token retained")
		}
	}

	flushPrune(ctx, s.registry, prune, "mobile", s.logger)

	return delivered
}
