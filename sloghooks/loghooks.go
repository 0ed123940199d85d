// Package sloghooks reports hashcache events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/hashcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery   uint64
	ContentionEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr   atomic.Uint64
	contentionCtr atomic.Uint64
}

var _ hashcache.Hooks = (*Hooks)(nil)

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

func (h *Hooks) DecodeError(storageKey, field string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("hashcache.decode_error",
		"key", storageKey,
		"field", h.redact(field),
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("hashcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) PutManyPartial(namespace string, failed []string) {
	if h.l == nil {
		return
	}
	h.l.Warn("hashcache.put_many_partial",
		"namespace", namespace,
		"failed", len(failed))
}

func (h *Hooks) ConnectionFailure(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("hashcache.connection_failure",
		"op", op,
		"err", err)
}

func (h *Hooks) CriticalMiss(cache, key string) {
	if h.l == nil {
		return
	}
	h.l.Error("hashcache.critical_miss",
		"cache", cache,
		"key", h.redact(key))
}

func (h *Hooks) LockContended(name string) {
	if h.l == nil || !sample(h.opts.ContentionEvery, &h.contentionCtr) {
		return
	}
	h.l.Debug("hashcache.lock_contended", "lock", name)
}
