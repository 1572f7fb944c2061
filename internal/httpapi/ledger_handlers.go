package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"artifactlive.org/internal/audit"
	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/obs"
	"artifactlive.org/internal/stream"
)

type createAccountRequest struct {
	Name    string `json:"account_name"`
	Type    string `json:"account_type"`
	Subtype string `json:"subtype"`
}

type postTransactionRequest struct {
	TransactionID string        `json:"transaction_id"`
	Entries       []ledger.Line `json:"entries"`
}

type postingResponse struct {
	TransactionID string `json:"transaction_id"`
	Reverses      string `json:"reverses,omitempty"`
}

type listEntriesResponse struct {
	Items  []ledger.Entry `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
	accs, err := a.ledger.ListAccounts(r.Context(), owner(r), includeInactive)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if accs == nil {
		accs = []ledger.Account{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": accs})
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "%s", err.Error())
		return
	}
	typ, _ := ledger.ParseAccountType(req.Type)
	acc, err := a.ledger.CreateAccount(r.Context(), owner(r), req.Name, typ, req.Subtype)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), audit.AccountCreated, map[string]any{
		"account_id":   acc.ID,
		"account_type": string(acc.Type),
	})
	w.Header().Set("Location", "/v1/accounts/"+acc.ID)
	writeJSON(w, http.StatusCreated, acc)
}

func (a *API) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.ledger.DeactivateAccount(r.Context(), owner(r), id); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r.Context(), audit.AccountDeactivated, map[string]any{"account_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) postTransaction(w http.ResponseWriter, r *http.Request) {
	var req postTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "%s", err.Error())
		return
	}
	var opts []ledger.PostOption
	if req.TransactionID != "" {
		opts = append(opts, ledger.WithTransactionID(req.TransactionID))
	}
	txID, err := a.ledger.PostTransaction(r.Context(), owner(r), req.Entries, opts...)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.notifyPosted(r, txID, "manual", "", req.Entries)
	writeJSON(w, http.StatusCreated, postingResponse{TransactionID: txID})
}

func (a *API) reverseTransaction(w http.ResponseWriter, r *http.Request) {
	original := chi.URLParam(r, "id")
	txID, err := a.ledger.ReverseTransaction(r.Context(), owner(r), original)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_, lines := a.postedEntries(r, txID)
	a.notifyPosted(r, txID, "reversal", original, lines)
	writeJSON(w, http.StatusCreated, postingResponse{TransactionID: txID, Reverses: original})
}

// postedEntries reads back a committed transaction for the response and the
// posting event. A failed read is logged only: the transaction stands and the
// client must still learn its id.
func (a *API) postedEntries(r *http.Request, txID string) ([]ledger.Entry, []ledger.Line) {
	entries, _, err := a.ledger.Entries(r.Context(), owner(r), ledger.EntryFilter{TransactionID: txID}, 0, 0)
	if err != nil {
		obs.Logger().WarnContext(r.Context(), "read back posted transaction failed",
			"transaction_id", txID, "error", err.Error())
		return nil, nil
	}
	lines := make([]ledger.Line, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, ledger.Line{AccountID: e.AccountID, Debit: e.Debit, Credit: e.Credit})
	}
	return entries, lines
}

// notifyPosted audits a committed posting and fans it out to stream subscribers.
func (a *API) notifyPosted(r *http.Request, txID, kind, reverses string, lines []ledger.Line) {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Debit)
	}
	fields := map[string]any{
		"transaction_id": txID,
		"kind":           kind,
		"entries":        len(lines),
		"amount":         total.StringFixed(2),
	}
	if reverses != "" {
		fields["reverses"] = reverses
	}
	a.audit(r.Context(), audit.TransactionPosted, fields)

	if a.stream != nil {
		a.stream.Publish(stream.PostingEvent{
			Owner:         owner(r),
			TransactionID: txID,
			Kind:          kind,
			Entries:       len(lines),
			Amount:        total.StringFixed(2),
			Reverses:      reverses,
			Timestamp:     time.Now().UTC(),
		})
	}
}

func (a *API) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseInt(q.Get("limit"), 0)
	if err != nil {
		badRequest(w, r, "limit must be an integer")
		return
	}
	offset, err := parseInt(q.Get("offset"), 0)
	if err != nil {
		badRequest(w, r, "offset must be an integer")
		return
	}
	f := ledger.EntryFilter{
		AccountID:     strings.TrimSpace(q.Get("account_id")),
		TransactionID: strings.TrimSpace(q.Get("transaction_id")),
		ReferenceType: q.Get("reference_type"),
	}
	if f.From, err = parseTime(q.Get("from")); err != nil {
		badRequest(w, r, "from: %s", err.Error())
		return
	}
	if f.To, err = parseTime(q.Get("to")); err != nil {
		badRequest(w, r, "to: %s", err.Error())
		return
	}

	items, total, err := a.ledger.Entries(r.Context(), owner(r), f, limit, offset)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if items == nil {
		items = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, listEntriesResponse{Items: items, Total: total, Limit: ledger.PageLimit(limit), Offset: offset})
}

func parseInt(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// parseTime accepts RFC 3339 timestamps or plain dates (UTC midnight).
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.New("want RFC 3339 timestamp or YYYY-MM-DD date")
	}
	return t, nil
}
