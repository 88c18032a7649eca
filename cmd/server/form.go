package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Simplici0/machinequote/internal/pricing"
)

const (
	actionUpdate   = "update"
	actionGenerate = "generate"
)

type quoteForm struct {
	CustomerName string
	Machine      string
	Discount     pricing.RawInputs
	Addons       []int
	Action       string
}

func parseQuoteForm(r *http.Request) (quoteForm, error) {
	form := quoteForm{
		CustomerName: strings.TrimSpace(r.FormValue("customer_name")),
		Machine:      strings.TrimSpace(r.FormValue("machine")),
		Discount: pricing.RawInputs{
			TargetPrice: r.FormValue("target_price"),
			Percent:     r.FormValue("percent"),
			Flat:        r.FormValue("flat"),
		},
		Action: r.FormValue("action"),
	}

	if form.Machine == "" {
		return form, errors.New("machine is required")
	}

	switch form.Action {
	case "":
		form.Action = actionUpdate
	case actionUpdate, actionGenerate:
	default:
		return form, fmt.Errorf("unknown action %q", form.Action)
	}

	for _, raw := range r.Form["addon"] {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 0 {
			return form, fmt.Errorf("addon %q is not a valid option id", raw)
		}
		form.Addons = append(form.Addons, id)
	}

	return form, nil
}

// pathName decodes a route parameter that may still be percent-encoded.
func pathName(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func formRedirect(machine, key, message string) string {
	q := url.Values{}
	if machine != "" {
		q.Set("machine", machine)
	}
	if message != "" {
		q.Set(key, message)
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// warningsOf splits a joined error into one message per field.
func warningsOf(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		out := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error()+"; ignored")
		}
		return out
	}
	return []string{err.Error() + "; ignored"}
}
