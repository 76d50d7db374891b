package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/usuwarium/usuwarium/internal/ctxhttpclient"
	"github.com/usuwarium/usuwarium/internal/httputil"
)

// Thumbnail proxies a video's thumbnail from the upstream image host. The
// context HTTP client caches responses, so repeated views don't re-fetch.
func Thumbnail(rw http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	url := fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", vars["id"])

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		panic(err)
	}

	res, err := ctxhttpclient.Do(r.Context(), req)
	if err != nil {
		panic(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		httputil.NotFound(rw, r)
		return
	}

	rw.Header().Set("content-type", res.Header.Get("content-type"))
	rw.Header().Set("cache-control", "public, max-age=86400")

	if _, err := io.Copy(rw, res.Body); err != nil {
		panic(err)
	}
}
