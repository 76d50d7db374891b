package httputil

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("content-type", "application/json; charset=utf-8")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		panic(err)
	}
}

func WriteError(rw http.ResponseWriter, status int, message string) {
	WriteJSON(rw, status, map[string]interface{}{"error": message})
}

func NotFound(rw http.ResponseWriter, r *http.Request) {
	WriteError(rw, http.StatusNotFound, "not found")
}

func BadRequest(rw http.ResponseWriter, message string) {
	WriteError(rw, http.StatusBadRequest, message)
}
