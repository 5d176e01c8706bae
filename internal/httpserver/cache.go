package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/pkg/logging"
	"go.uber.org/zap"
)

type storeInfo struct {
	Inspectable bool `json:"inspectable"`
	Size        *int `json:"size,omitempty"`
}

type cacheStatsResponse struct {
	Status    string            `json:"status"`
	Kinds     []cache.KindStats `json:"kinds"`
	Store     storeInfo         `json:"store"`
	Timestamp time.Time         `json:"timestamp"`
}

type keyView struct {
	Key        string `json:"key"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type cacheKeysResponse struct {
	Status    string    `json:"status"`
	Keys      []keyView `json:"keys"`
	TotalKeys int       `json:"total_keys"`
	Timestamp time.Time `json:"timestamp"`
}

type cacheClearResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Prefix      string    `json:"prefix"`
	DeletedKeys *int      `json:"deleted_keys,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (h *handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	resp := cacheStatsResponse{
		Status:    "success",
		Kinds:     h.stats.Snapshot(),
		Timestamp: time.Now().UTC(),
	}
	if resp.Kinds == nil {
		resp.Kinds = []cache.KindStats{}
	}

	if in, ok := cache.AsInspector(h.store); ok {
		resp.Store.Inspectable = true
		size, err := in.Size(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.Store.Size = &size
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) cacheKeys(w http.ResponseWriter, r *http.Request) {
	in, ok := cache.AsInspector(h.store)
	if !ok {
		h.writeError(w, r, &requestError{status: http.StatusNotImplemented, code: "not_supported", message: "the cache store cannot list keys"})
		return
	}

	infos, err := in.Keys(r.Context(), kindPrefix(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	keys := make([]keyView, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, keyView{Key: info.Key, TTLSeconds: int64(info.TTL.Round(time.Second) / time.Second)})
	}
	writeJSON(w, http.StatusOK, cacheKeysResponse{
		Status:    "success",
		Keys:      keys,
		TotalKeys: len(keys),
		Timestamp: time.Now().UTC(),
	})
}

// clearCache removes every key of the service, or of one kind with ?kind=.
func (h *handler) clearCache(w http.ResponseWriter, r *http.Request) {
	prefix := kindPrefix(r)
	in, inspectable := cache.AsInspector(h.store)

	before := 0
	if inspectable {
		infos, err := in.Keys(r.Context(), prefix)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		before = len(infos)
	}

	if err := h.store.DeleteByPrefix(r.Context(), prefix); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := cacheClearResponse{
		Status:    "success",
		Message:   "cache cleared",
		Prefix:    prefix,
		Timestamp: time.Now().UTC(),
	}
	if inspectable {
		resp.DeletedKeys = &before
		resp.Message = "cleared " + strconv.Itoa(before) + " cache entries"
	}

	logging.L(r.Context()).Info("cache cleared", zap.String("prefix", prefix), zap.Int("keys", before))
	writeJSON(w, http.StatusOK, resp)
}

func kindPrefix(r *http.Request) string {
	if kind := r.URL.Query().Get("kind"); kind != "" {
		return cache.KindPrefix(kind)
	}
	return ""
}
