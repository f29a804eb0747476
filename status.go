package contractmsg

import (
	"net/http"
	"strconv"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/FuelLabs/bridge-message-predicates/net"
)

// StatusResponse is the body of a reply to GET /status.
type StatusResponse struct {
	State         string         `json:"state"`
	Signer        fuel.Address   `json:"signer"`
	PredicateRoot fuel.Address   `json:"predicate_root"`
	ScriptHash    fuel.Bytes32   `json:"script_hash"`
	Policy        Policy         `json:"policy"`
	Selector      uint32         `json:"selector"`
	Counts        map[string]int `json:"counts,omitempty"`
}

// Handler serves the relayer's status:
//
//	GET /status    a StatusResponse
//	GET /artifacts ?name=script|predicate: the raw program bytes
//	GET /recent    ?limit=: the latest recorded outcomes
//	GET /history   ?id=: the recorded outcomes of one message
func (r *Relayer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", r.status)
	mux.HandleFunc("/artifacts", r.serveArtifact)
	mux.HandleFunc("/recent", r.recent)
	mux.HandleFunc("/history", r.history)
	return mux
}

func (r *Relayer) status(w http.ResponseWriter, req *http.Request) {
	a := r.artifacts
	resp := &StatusResponse{
		State:         r.State().String(),
		Signer:        r.signer.Address(),
		PredicateRoot: a.PredicateRoot,
		ScriptHash:    a.ScriptHash,
		Policy:        a.Policy,
		Selector:      a.FunctionSelector(),
	}
	if r.Store != nil {
		counts, err := r.Store.Counts(req.Context())
		if err != nil {
			net.Errorf(w, http.StatusInternalServerError, "counting outcomes: %s", err)
			return
		}
		resp.Counts = counts
	}
	net.WriteJSON(w, http.StatusOK, resp)
}

func (r *Relayer) serveArtifact(w http.ResponseWriter, req *http.Request) {
	var bits []byte
	switch name := req.FormValue("name"); name {
	case "script":
		bits = r.artifacts.Script
	case "predicate":
		bits = r.artifacts.Predicate
	default:
		net.Errorf(w, http.StatusBadRequest, "unknown artifact %q", name)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(bits)
}

func (r *Relayer) recent(w http.ResponseWriter, req *http.Request) {
	if r.Store == nil {
		net.Errorf(w, http.StatusNotFound, "no outcome store")
		return
	}
	limit := 20
	if s := req.FormValue("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			net.Errorf(w, http.StatusBadRequest, "bad limit %q", s)
			return
		}
		limit = n
	}
	recs, err := r.Store.Recent(req.Context(), limit)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "reading outcomes: %s", err)
		return
	}
	net.WriteJSON(w, http.StatusOK, recs)
}

func (r *Relayer) history(w http.ResponseWriter, req *http.Request) {
	if r.Store == nil {
		net.Errorf(w, http.StatusNotFound, "no outcome store")
		return
	}
	id, err := fuel.ParseBytes32(req.FormValue("id"))
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "parsing id: %s", err)
		return
	}
	recs, err := r.Store.History(req.Context(), id)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "reading history of %s: %s", id, err)
		return
	}
	net.WriteJSON(w, http.StatusOK, recs)
}
