package httpapi

import (
	"context"
	"net/http"
)

func report[T any](build func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := build(r.Context(), owner(r))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (a *API) accountingEquation(w http.ResponseWriter, r *http.Request) {
	report(a.statements.AccountingEquation)(w, r)
}

func (a *API) trialBalance(w http.ResponseWriter, r *http.Request) {
	report(a.statements.TrialBalance)(w, r)
}

func (a *API) balanceSheet(w http.ResponseWriter, r *http.Request) {
	report(a.statements.BalanceSheet)(w, r)
}

func (a *API) incomeStatement(w http.ResponseWriter, r *http.Request) {
	report(a.statements.IncomeStatement)(w, r)
}
