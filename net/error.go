package net

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorResponse is the body of an error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON replies to an HTTP request with v encoded as JSON.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Errorf replies to an HTTP request with the specified error as an
// ErrorResponse, also logging it to stderr.
func Errorf(w http.ResponseWriter, code int, msgfmt string, args ...interface{}) {
	msg := fmt.Sprintf(msgfmt, args...)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
	log.Printf("%d %s", code, msg)
}

// ResponseError turns an unsuccessful reply into an error, using the
// message from its ErrorResponse body if it has one.
func ResponseError(resp *http.Response) error {
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s reply", resp.Status)
	}
	var e ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return errors.Errorf("%s: %s", resp.Status, e.Error)
	}
	return errors.Errorf("%s: %s", resp.Status, body)
}
