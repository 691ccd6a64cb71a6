// Package sloghook logs cache events through log/slog with sampling and
// key redaction.
package sloghook

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/streamcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	RejectEvery   uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	rejectCtr   atomic.Uint64
}

var _ streamcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("streamcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string, size int) {
	if h.l == nil || !sample(h.opts.RejectEvery, &h.rejectCtr) {
		return
	}
	h.l.Warn("streamcache.provider_set_rejected",
		"key", h.redact(storageKey),
		"size", size)
}

func (h *Hooks) CommitFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("streamcache.commit_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) GenSnapshotError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("streamcache.gen_snapshot_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) GenBumpError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("streamcache.gen_bump_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) DeleteOutage(key string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("streamcache.delete_outage",
		"key", h.redact(key),
		"bump_err", bumpErr,
		"del_err", delErr)
}
