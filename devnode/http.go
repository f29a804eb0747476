package devnode

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/FuelLabs/bridge-message-predicates/net"
)

// SubmitResponse is the body of a reply to POST /submit.
type SubmitResponse struct {
	TxID     fuel.TxID      `json:"tx_id"`
	Invalid  bool           `json:"invalid,omitempty"`
	Error    string         `json:"error,omitempty"`
	Receipts []fuel.Receipt `json:"receipts,omitempty"`
}

// SendMessageRequest is the body of POST /message.
type SendMessageRequest struct {
	Sender    fuel.Address `json:"sender"`
	Recipient fuel.Address `json:"recipient"`
	Amount    uint64       `json:"amount"`
	Data      []byte       `json:"data"`
}

// MintRequest is the body of POST /mint.
type MintRequest struct {
	Owner   fuel.Address `json:"owner"`
	AssetID fuel.AssetID `json:"asset_id"`
	Amount  uint64       `json:"amount"`
}

// DeployRequest is the body of POST /contract.
type DeployRequest struct {
	ID       fuel.ContractID `json:"id"`
	Selector uint64          `json:"selector"`
}

// Handler serves the node's HTTP interface:
//
//	POST /submit     a protobuf RawTx; replies with a SubmitResponse
//	GET  /messages   ?owner=: unspent messages
//	GET  /coins      ?owner=: unspent coins
//	POST /message    a SendMessageRequest; replies with the message
//	POST /mint       a MintRequest; replies with the coin
//	GET  /contract   ?id=: contract state
//	POST /contract   a DeployRequest; replies with the contract
//	GET  /get        ?height=: the block at that height, waiting for it
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", n.submit)
	mux.HandleFunc("/messages", n.messagesOf)
	mux.HandleFunc("/coins", n.coinsOf)
	mux.HandleFunc("/message", n.sendMessage)
	mux.HandleFunc("/mint", n.mint)
	mux.HandleFunc("/contract", n.contract)
	mux.HandleFunc("/get", n.get)
	return mux
}

func (n *Node) submit(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		net.Errorf(w, http.StatusMethodNotAllowed, "%s not allowed", req.Method)
		return
	}
	ctx := req.Context()

	bits, err := ioutil.ReadAll(req.Body)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "reading request body: %s", err)
		return
	}
	tx, err := fuel.UnmarshalRawTx(bits)
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "parsing request body: %s", err)
		return
	}

	resp := SubmitResponse{TxID: tx.ID()}
	code := http.StatusOK
	receipts, err := n.Submit(ctx, tx)
	if fuel.IsInvalid(err) {
		resp.Invalid = true
		resp.Error = err.Error()
		code = http.StatusUnprocessableEntity
	} else if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "submitting tx %s: %s", resp.TxID, err)
		return
	}
	resp.Receipts = receipts
	net.WriteJSON(w, code, resp)
}

func parseAddress(w http.ResponseWriter, req *http.Request, name string) (fuel.Bytes32, bool) {
	addr, err := fuel.ParseBytes32(req.FormValue(name))
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "parsing %s: %s", name, err)
		return fuel.Bytes32{}, false
	}
	return addr, true
}

func (n *Node) messagesOf(w http.ResponseWriter, req *http.Request) {
	owner, ok := parseAddress(w, req, "owner")
	if !ok {
		return
	}
	msgs, err := n.Messages(req.Context(), owner)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "listing messages: %s", err)
		return
	}
	net.WriteJSON(w, http.StatusOK, msgs)
}

func (n *Node) coinsOf(w http.ResponseWriter, req *http.Request) {
	owner, ok := parseAddress(w, req, "owner")
	if !ok {
		return
	}
	coins, err := n.Coins(req.Context(), owner)
	if err != nil {
		net.Errorf(w, http.StatusInternalServerError, "listing coins: %s", err)
		return
	}
	net.WriteJSON(w, http.StatusOK, coins)
}

func readJSON(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	if req.Method != http.MethodPost {
		net.Errorf(w, http.StatusMethodNotAllowed, "%s not allowed", req.Method)
		return false
	}
	err := json.NewDecoder(req.Body).Decode(v)
	if err != nil {
		net.Errorf(w, http.StatusBadRequest, "parsing request body: %s", err)
		return false
	}
	return true
}

func (n *Node) sendMessage(w http.ResponseWriter, req *http.Request) {
	var r SendMessageRequest
	if !readJSON(w, req, &r) {
		return
	}
	net.WriteJSON(w, http.StatusOK, n.SendMessage(r.Sender, r.Recipient, r.Amount, r.Data))
}

func (n *Node) mint(w http.ResponseWriter, req *http.Request) {
	var r MintRequest
	if !readJSON(w, req, &r) {
		return
	}
	net.WriteJSON(w, http.StatusOK, n.Mint(r.Owner, r.AssetID, r.Amount))
}

func (n *Node) contract(w http.ResponseWriter, req *http.Request) {
	if req.Method == http.MethodPost {
		var r DeployRequest
		if !readJSON(w, req, &r) {
			return
		}
		c, err := n.Deploy(r.ID, r.Selector)
		if err != nil {
			net.Errorf(w, http.StatusConflict, "%s", err)
			return
		}
		net.WriteJSON(w, http.StatusOK, c)
		return
	}

	id, ok := parseAddress(w, req, "id")
	if !ok {
		return
	}
	c, ok := n.Contract(id)
	if !ok {
		net.Errorf(w, http.StatusNotFound, "no contract %s", id)
		return
	}
	net.WriteJSON(w, http.StatusOK, c)
}

func (n *Node) get(w http.ResponseWriter, req *http.Request) {
	wantStr := req.FormValue("height")
	var (
		want uint64 = 1
		err  error
	)
	if wantStr != "" {
		want, err = strconv.ParseUint(wantStr, 10, 64)
		if err != nil {
			net.Errorf(w, http.StatusBadRequest, "parsing height: %s", err)
			return
		}
	}

	ctx := req.Context()

	r := n.Blocks()
	defer r.Dispose()

	b, _ := n.Block(want)
	for b == nil {
		item, ok := r.Read(ctx)
		if !ok {
			net.Errorf(w, http.StatusRequestTimeout, "timed out waiting for block %d", want)
			return
		}
		if got := item.(*Block); got.Height == want {
			b = got
		}
	}
	net.WriteJSON(w, http.StatusOK, b)
}
