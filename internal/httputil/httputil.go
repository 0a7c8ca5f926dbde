package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lv-tradesettle/internal/apperr"

	"github.com/shopspring/decimal"
)

// Prices, amounts and balances go over the wire as JSON numbers. Decoding
// still accepts both numbers and strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

const maxBodyBytes = 1 << 20

// Envelope is the one response shape every endpoint writes.
type Envelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteOK(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{OK: true, Data: data})
}

func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	WriteJSON(w, kind.Status(), Envelope{OK: false, Message: apperr.PublicMessage(err), Code: kind.Code()})
}

// ReadJSON decodes a request body. An empty body leaves v untouched so
// handlers with all-optional fields accept bodyless requests.
func ReadJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(apperr.KindBadRequest, err, "invalid request body")
	}
	return nil
}
