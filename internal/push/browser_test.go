package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/famcash/push-server/internal/models"
	"github.com/famcash/push-server/internal/webpush"
)

func testSigner(t *testing.T) *webpush.Signer {
	t.Helper()
	publicB64, privateB64, err := webpush.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	signer, err := webpush.NewSigner(publicB64, privateB64, "mailto:push@famcash.app")
	if err != nil {
		t.Fatal(err)
	}
	return signer
}

// subscriptionToken builds a stored registration token pointing at the test
// push service.
func subscriptionToken(t *testing.T, endpoint string) string {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatal(err)
	}
	return `{"endpoint":"` + endpoint + `","keys":{` +
		`"p256dh":"` + base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()) + `",` +
		`"auth":"` + base64.RawURLEncoding.EncodeToString(auth) + `"}}`
}

func TestBrowserSendClassifiesResponses(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path] = r.Header.Clone()
		mu.Unlock()
		switch r.URL.Path {
		case "/send/ok":
			w.WriteHeader(http.StatusCreated)
		case "/send/gone":
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	okToken := subscriptionToken(t, srv.URL+"/send/ok")
	goneToken := subscriptionToken(t, srv.URL+"/send/gone")
	flakyToken := subscriptionToken(t, srv.URL+"/send/flaky")

	reg := &fakeRegistry{}
	sender := NewBrowserSender(testSigner(t), 5*time.Second, 4, reg, testLogger())

	delivered := sender.Send(context.Background(), []string{okToken, goneToken, flakyToken}, models.Notification{Title: "Allowance paid"})

	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}

	deleted := reg.deletedTokens()
	if len(deleted) != 1 || deleted[0] != goneToken {
		t.Fatalf("pruned %d tokens, want only the 410 subscription", len(deleted))
	}
	if len(reg.deleted) != 1 {
		t.Fatalf("prune flushed %d times, want once", len(reg.deleted))
	}

	h := seen["/send/ok"]
	if h.Get("Content-Encoding") != "aes128gcm" {
		t.Fatalf("Content-Encoding = %q", h.Get("Content-Encoding"))
	}
	if !strings.HasPrefix(h.Get("Authorization"), "vapid t=") {
		t.Fatalf("Authorization = %q", h.Get("Authorization"))
	}
	if h.Get("TTL") == "" || h.Get("Urgency") != "high" {
		t.Fatalf("missing TTL/Urgency headers: %v", h)
	}
}

func TestBrowserSendSkipsMalformedSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	reg := &fakeRegistry{}
	sender := NewBrowserSender(testSigner(t), 5*time.Second, 2, reg, testLogger())

	tokens := []string{"not-a-subscription", subscriptionToken(t, srv.URL+"/send/a")}
	delivered := sender.Send(context.Background(), tokens, models.Notification{Title: "x"})

	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1 (malformed token isolated)", delivered)
	}
	if len(reg.deletedTokens()) != 0 {
		t.Fatal("malformed tokens must not be pruned")
	}
}

func TestBrowserSendPruneFailureSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/send/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	reg := &fakeRegistry{deleteErr: errors.New("registry down")}
	sender := NewBrowserSender(testSigner(t), 5*time.Second, 2, reg, testLogger())

	tokens := []string{
		subscriptionToken(t, srv.URL+"/send/ok"),
		subscriptionToken(t, srv.URL+"/send/gone"),
	}
	if n := sender.Send(context.Background(), tokens, models.Notification{Title: "x"}); n != 1 {
		t.Fatalf("delivered = %d, want 1 even when pruning fails", n)
	}
}

func TestBrowserSendEmptyList(t *testing.T) {
	sender := NewBrowserSender(testSigner(t), time.Second, 2, &fakeRegistry{}, testLogger())
	if n := sender.Send(context.Background(), nil, models.Notification{Title: "x"}); n != 0 {
		t.Fatalf("delivered = %d, want 0", n)
	}
}

func TestBrowserSendEndpointFailureIsIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/send/slow" {
			time.Sleep(200 * time.Millisecond)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	reg := &fakeRegistry{}
	sender := NewBrowserSender(testSigner(t), 50*time.Millisecond, 2, reg, testLogger())

	tokens := []string{
		subscriptionToken(t, srv.URL+"/send/slow"),
		subscriptionToken(t, srv.URL+"/send/a"),
		subscriptionToken(t, srv.URL+"/send/b"),
	}
	delivered := sender.Send(context.Background(), tokens, models.Notification{Title: "x"})

	if delivered != 2 {
		t.Fatalf("delivered = %d, want 2 (timeout isolated to one endpoint)", delivered)
	}
	if len(reg.deletedTokens()) != 0 {
		t.Fatal("timeouts must never prune")
	}
}
