package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/usuwarium/usuwarium/internal/ctxsyncer"
	"github.com/usuwarium/usuwarium/internal/httputil"
	"github.com/usuwarium/usuwarium/internal/syncer"
)

func SyncStatus(rw http.ResponseWriter, r *http.Request) {
	state, err := ctxsyncer.GetSyncer(r.Context()).State(r.Context())
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, state)
}

// SyncRefresh forces a synchronisation. A degraded outcome is reported as
// part of the state rather than as a server error, since the cache is still
// serving.
func SyncRefresh(rw http.ResponseWriter, r *http.Request) {
	sy := ctxsyncer.GetSyncer(r.Context())

	if err := sy.Refresh(r.Context(), true); err != nil {
		var degraded *syncer.DegradedError
		if !errors.As(err, &degraded) {
			state, stateErr := sy.State(r.Context())
			if stateErr != nil {
				panic(stateErr)
			}

			httputil.WriteJSON(rw, http.StatusBadGateway, state)
			return
		}
	}

	state, err := sy.State(r.Context())
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, state)
}

// SyncSSE streams synchronisation state changes as server-sent events.
func SyncSSE(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")

	ctx := r.Context()

	sy := ctxsyncer.GetSyncer(ctx)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var last *syncer.State

	for {
		state, err := sy.State(ctx)
		if err == nil && !reflect.DeepEqual(state, last) {
			data, err := json.Marshal(state)
			if err == nil {
				fmt.Fprintf(rw, "data: %s\n\n", data)
				if f, ok := rw.(http.Flusher); ok {
					f.Flush()
				}

				last = state
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
