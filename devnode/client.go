package devnode

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/FuelLabs/bridge-message-predicates/net"
	snet "github.com/interstellar/starlight/net"
	"github.com/pkg/errors"
)

// Client talks to a node's HTTP interface. It satisfies the
// relayer's node client interface.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient returns a client for the node at baseURL.
func NewClient(baseURL string) *Client {
	dialer := &snet.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &Client{
		base: baseURL,
		hc: &http.Client{
			Transport: &http.Transport{
				Dial:                dialer.Dial,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, v interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "building %s request", path)
	}
	req = req.WithContext(ctx)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if path == "/submit" && resp.StatusCode == http.StatusUnprocessableEntity {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	if resp.StatusCode/100 != 2 {
		return errors.Wrapf(net.ResponseError(resp), "%s %s", method, path)
	}
	err = json.NewDecoder(resp.Body).Decode(v)
	return errors.Wrapf(err, "decoding %s reply", path)
}

func (c *Client) postJSON(ctx context.Context, path string, req, resp interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "encoding %s request", path)
	}
	return c.do(ctx, http.MethodPost, path, nil, "application/json", body, resp)
}

// Messages returns the unspent messages owned by owner.
func (c *Client) Messages(ctx context.Context, owner fuel.Address) ([]*fuel.Message, error) {
	var msgs []*fuel.Message
	err := c.do(ctx, http.MethodGet, "/messages", url.Values{"owner": {owner.String()}}, "", nil, &msgs)
	return msgs, err
}

// Coins returns the unspent coins owned by owner.
func (c *Client) Coins(ctx context.Context, owner fuel.Address) ([]*fuel.Coin, error) {
	var coins []*fuel.Coin
	err := c.do(ctx, http.MethodGet, "/coins", url.Values{"owner": {owner.String()}}, "", nil, &coins)
	return coins, err
}

// Submit sends tx to the node. A transaction the node refuses yields
// an error whose root is fuel.ErrInvalidTransaction.
func (c *Client) Submit(ctx context.Context, tx *fuel.Transaction) ([]fuel.Receipt, error) {
	bits, err := fuel.MarshalRawTx(tx)
	if err != nil {
		return nil, errors.Wrap(err, "encoding tx")
	}
	var resp SubmitResponse
	err = c.do(ctx, http.MethodPost, "/submit", nil, "application/octet-stream", bits, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Invalid {
		return nil, fuel.Invalidf("%s", resp.Error)
	}
	return resp.Receipts, nil
}

// SendMessage asks the node to create a message.
func (c *Client) SendMessage(ctx context.Context, sender, recipient fuel.Address, amount uint64, data []byte) (*fuel.Message, error) {
	var m fuel.Message
	err := c.postJSON(ctx, "/message", &SendMessageRequest{Sender: sender, Recipient: recipient, Amount: amount, Data: data}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Mint asks the node to create a coin.
func (c *Client) Mint(ctx context.Context, owner fuel.Address, asset fuel.AssetID, amount uint64) (*fuel.Coin, error) {
	var coin fuel.Coin
	err := c.postJSON(ctx, "/mint", &MintRequest{Owner: owner, AssetID: asset, Amount: amount}, &coin)
	if err != nil {
		return nil, err
	}
	return &coin, nil
}

// Deploy asks the node to create a contract.
func (c *Client) Deploy(ctx context.Context, id fuel.ContractID, selector uint64) (*Contract, error) {
	var con Contract
	err := c.postJSON(ctx, "/contract", &DeployRequest{ID: id, Selector: selector}, &con)
	if err != nil {
		return nil, err
	}
	return &con, nil
}

// Contract fetches a contract's state.
func (c *Client) Contract(ctx context.Context, id fuel.ContractID) (*Contract, error) {
	var con Contract
	err := c.do(ctx, http.MethodGet, "/contract", url.Values{"id": {id.String()}}, "", nil, &con)
	if err != nil {
		return nil, err
	}
	return &con, nil
}

// Block fetches the block at height, waiting for it to be committed.
func (c *Client) Block(ctx context.Context, height uint64) (*Block, error) {
	var b Block
	err := c.do(ctx, http.MethodGet, "/get", url.Values{"height": {strconv.FormatUint(height, 10)}}, "", nil, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
