package gateway

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v68/github"

	"github.com/temper-mc/prforum/internal/events"
	"github.com/temper-mc/prforum/internal/logging"
	"github.com/temper-mc/prforum/internal/webhook"
	"github.com/temper-mc/prforum/models"
)

// maxPayloadBytes matches GitHub's own cap on webhook payloads.
const maxPayloadBytes = 25 << 20

// handlePush is the webhook intake. Everything except a failed signature
// check is answered with 2xx so GitHub does not retry deliveries we have
// already decided about. A wrong path secret gets an empty 200.
func (gw *Gateway) handlePush(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(r.PathValue("secret")), []byte(gw.opts.Secret)) != 1 {
		logging.Trace("Webhook with wrong secret dropped", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		return
	}

	d := models.Delivery{
		DeliveryID: r.Header.Get(github.DeliveryIDHeader),
		Kind:       r.Header.Get(github.EventTypeHeader),
	}
	if d.Kind == "" {
		slog.Error("Webhook missing event header", "header", github.EventTypeHeader, "delivery", d.DeliveryID)
		gw.reject(w, d, "missing "+github.EventTypeHeader+" header")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		slog.Error("Reading webhook body failed", "kind", d.Kind, "delivery", d.DeliveryID, "error", err)
		gw.reject(w, d, fmt.Sprintf("reading body: %v", err))
		return
	}

	if gw.opts.HMACSecret != "" {
		if err := github.ValidateSignature(signatureHeader(r), body, []byte(gw.opts.HMACSecret)); err != nil {
			slog.Warn("Webhook signature rejected", "kind", d.Kind, "delivery", d.DeliveryID, "error", err)
			d.Outcome = models.OutcomeRejected
			d.Detail = "signature: " + err.Error()
			gw.recorder.record(d)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	res, err := webhook.Normalize(d.Kind, body)
	d.Action = res.Action
	if err != nil {
		slog.Error("Webhook payload rejected", "kind", d.Kind, "delivery", d.DeliveryID, "error", err)
		gw.reject(w, d, err.Error())
		return
	}
	if res.Ignored() {
		logging.Trace("Webhook ignored", "kind", d.Kind, "action", res.Action, "reason", res.Reason)
		d.Outcome = models.OutcomeIgnored
		d.Detail = res.Reason
		gw.recorder.record(d)
		w.WriteHeader(http.StatusOK)
		return
	}

	d.Event = res.Event.Name()
	d.PRNumber = res.Event.PRNumber()
	if err := gw.submit(r, res.Event); err != nil {
		slog.Error("Event not queued", "event", d.Event, "pr", d.PRNumber, "error", err)
		gw.reject(w, d, err.Error())
		return
	}

	slog.Debug("Event queued", "event", d.Event, "pr", d.PRNumber, "delivery", d.DeliveryID)
	d.Outcome = models.OutcomeQueued
	gw.recorder.record(d)
	w.WriteHeader(http.StatusAccepted)
}

// submit blocks while the queue is full, for as long as the request lives.
func (gw *Gateway) submit(r *http.Request, evt events.Event) error {
	if gw.opts.Queue == nil {
		return events.ErrQueueClosed
	}
	err := gw.opts.Queue.Submit(r.Context(), evt)
	if errors.Is(err, events.ErrQueueClosed) {
		return fmt.Errorf("projector unavailable: %w", err)
	}
	return err
}

func (gw *Gateway) reject(w http.ResponseWriter, d models.Delivery, detail string) {
	d.Outcome = models.OutcomeRejected
	d.Detail = detail
	gw.recorder.record(d)
	w.WriteHeader(http.StatusOK)
}

// signatureHeader prefers the SHA-256 signature and falls back to SHA-1.
func signatureHeader(r *http.Request) string {
	if sig := r.Header.Get(github.SHA256SignatureHeader); sig != "" {
		return sig
	}
	return r.Header.Get(github.SHA1SignatureHeader)
}
