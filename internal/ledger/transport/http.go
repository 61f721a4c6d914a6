package transport

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/ledger/apdu"
)

// APDUPath is the endpoint a device bridge serves raw APDUs on
const APDUPath = "/apdu"

// APDUMessage is the JSON body exchanged with an HTTP device bridge, in both directions
type APDUMessage struct {
	Data string `json:"data"`
}

// HTTP exchanges APDUs with an HTTP device bridge
type HTTP struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates an HTTP transport; a zero timeout disables the client timeout
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return &HTTP{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Exchange posts one command to the bridge and decodes its answer
func (h *HTTP) Exchange(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error) {
	raw, err := cmd.Serialize()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(APDUMessage{Data: hex.EncodeToString(raw)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal apdu request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+APDUPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build apdu request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to post apdu")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, errors.Errorf("device bridge returned %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var msg APDUMessage
	if err := json.NewDecoder(res.Body).Decode(&msg); err != nil {
		return nil, errors.Wrap(err, "failed to decode apdu response")
	}

	answer, err := hex.DecodeString(msg.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode apdu response hex")
	}

	return apdu.ParseAnswer(answer)
}

// Close releases idle connections
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
