package push

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/famcash/push-server/internal/metrics"
	"github.com/famcash/push-server/internal/models"
	"github.com/famcash/push-server/internal/webpush"
)

// How long push services should queue an undelivered message.
const browserTTL = 24 * time.Hour

// browserPayload is what the service worker receives after decryption.
type browserPayload struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// BrowserSender delivers to browser push endpoints: one encrypted POST per
// subscription, with bounded concurrency.
type BrowserSender struct {
	signer      *webpush.Signer
	client      *http.Client
	timeout     time.Duration
	concurrency int
	registry    Registry
	logger      zerolog.Logger
}

// NewBrowserSender creates a browser channel sender.
func NewBrowserSender(signer *webpush.Signer, timeout time.Duration, concurrency int, registry Registry, logger zerolog.Logger) *BrowserSender {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BrowserSender{
		signer:      signer,
		client:      &http.Client{},
		timeout:     timeout,
		concurrency: concurrency,
		registry:    registry,
		logger:      logger,
	}
}

// Send encrypts and posts the notification to every subscription. Failures
// are isolated per subscription; 404/410 responses mark the row for pruning.
// The prune set is accumulated under a lock and flushed once at the end.
func (s *BrowserSender) Send(ctx context.Context, tokens []string, n models.Notification) int {
	if len(tokens) == 0 {
		return 0
	}

	payload, err := json.Marshal(browserPayload{Title: n.Title, Body: n.Message})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode browser payload")
		return 0
	}

	var (
		mu        sync.Mutex
		delivered int
		prune     []string
	)
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ok, stale := s.sendOne(ctx, token, payload)

			mu.Lock()
			if ok {
				delivered++
			}
			if stale {
				prune = append(prune, token)
			}
			mu.Unlock()
		}(token)
	}
	wg.Wait()

	flushPrune(ctx, s.registry, prune, "web", s.logger)

	return delivered
}

// sendOne delivers to a single subscription. It reports whether delivery
// succeeded and whether the provider confirmed the subscription is gone.
func (s *BrowserSender) sendOne(ctx context.Context, token string, payload []byte) (ok, stale bool) {
	sub, err := webpush.ParseSubscription(token)
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues("web", "failed").Inc()
		s.logger.Warn().Err(err).Msg("skipping malformed browser subscription")
		return false, false
	}

	body, err := webpush.Encrypt(payload, sub)
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues("web", "failed").Inc()
		s.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("webpush encryption failed")
		return false, false
	}

	auth, err := s.signer.AuthorizationHeader(sub.Endpoint, time.Now())
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues("web", "failed").Inc()
		s.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("vapid signing failed")
		return false, false
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues("web", "failed").Inc()
		s.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to build push request")
		return false, false
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("Authorization", auth)
	req.Header.Set("TTL", strconv.Itoa(int(browserTTL.Seconds())))
	req.Header.Set("Urgency", "high")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues("web", "failed").Inc()
		s.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("browser push failed")
		return false, false
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	metrics.WebPushLatency.Observe(time.Since(start).Seconds())

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.DeliveriesTotal.WithLabelValues("web", "sent").Inc()
		return true, false
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		metrics.DeliveriesTotal.WithLabelValues("web", "stale").Inc()
		s.logger.Info().Int("status", resp.StatusCode).Str("endpoint", sub.Endpoint).Msg("subscription is gone")
		return false, true
	default:
		metrics.DeliveriesTotal.WithLabelValues("web", "failed").Inc()
		s.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", sub.Endpoint).Msg("browser push rejected, subscription retained")
		return false, false
	}
}
