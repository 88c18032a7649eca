package main

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/machinequote/internal/pricing"
)

func TestParseQuoteForm_Success(t *testing.T) {
	form := url.Values{}
	form.Set("customer_name", "  Acme Aerospace ")
	form.Set("machine", "HU63A")
	form.Set("target_price", "95,000")
	form.Set("percent", "")
	form.Set("flat", "250")
	form.Add("addon", "0")
	form.Add("addon", "3")
	form.Set("action", "generate")

	req := httptest.NewRequest("POST", "/quote", nil)
	req.Form = form

	values, err := parseQuoteForm(req)
	require.NoError(t, err)
	assert.Equal(t, "Acme Aerospace", values.CustomerName)
	assert.Equal(t, "HU63A", values.Machine)
	assert.Equal(t, pricing.RawInputs{TargetPrice: "95,000", Flat: "250"}, values.Discount)
	assert.Equal(t, []int{0, 3}, values.Addons)
	assert.Equal(t, actionGenerate, values.Action)
}

func TestParseQuoteForm_DefaultsToUpdate(t *testing.T) {
	form := url.Values{}
	form.Set("machine", "HU63A")

	req := httptest.NewRequest("POST", "/quote", nil)
	req.Form = form

	values, err := parseQuoteForm(req)
	require.NoError(t, err)
	assert.Equal(t, actionUpdate, values.Action)
	assert.Empty(t, values.Addons)
}

func TestParseQuoteForm_Invalid(t *testing.T) {
	cases := map[string]url.Values{
		"missing machine": {"customer_name": {"Acme"}},
		"unknown action":  {"machine": {"HU63A"}, "action": {"delete"}},
		"bad addon":       {"machine": {"HU63A"}, "addon": {"first"}},
		"negative addon":  {"machine": {"HU63A"}, "addon": {"-1"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/quote", nil)
			req.Form = form

			_, err := parseQuoteForm(req)
			assert.Error(t, err)
		})
	}
}

func TestFormRedirect(t *testing.T) {
	assert.Equal(t, "/", formRedirect("", "error", ""))
	assert.Equal(t, "/?machine=HU63A", formRedirect("HU63A", "success", ""))
	assert.Equal(t, "/?machine=HU+63&success=Image+saved", formRedirect("HU 63", "success", "Image saved"))
}

func TestWarningsOf(t *testing.T) {
	assert.Nil(t, warningsOf(nil))
	assert.Equal(t, []string{"boom; ignored"}, warningsOf(errors.New("boom")))

	_, err := pricing.ParseInputs(pricing.RawInputs{Percent: "150", Flat: "abc"})
	warnings := warningsOf(err)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "percent")
	assert.Contains(t, warnings[1], "flat")
	for _, w := range warnings {
		assert.Contains(t, w, "; ignored")
	}
}

func TestPathName(t *testing.T) {
	assert.Equal(t, "Spindle Options_0", pathName("Spindle%20Options_0"))
	assert.Equal(t, "OMP60", pathName("OMP60"))
	assert.Equal(t, "50%off", pathName("50%off"))
}
