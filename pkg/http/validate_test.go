package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Date     string   `param:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Fatigue  *float64 `json:"fatigue" validate:"omitempty,gte=1,lte=10"`
	Mode     string   `query:"mode" default:"adt" validate:"oneof=adt standard"`
	Notes    string   `json:"notes" validate:"max=5"`
	Internal string   `json:"-"`
}

func TestValidate_UsesWireNames(t *testing.T) {
	ten := 11.0
	err := Validate(&sampleRequest{Date: "03/01/2024", Fatigue: &ten, Mode: "turbo", Notes: "too long"})
	require.Error(t, err)

	got := map[string]ValidationError{}
	for _, ve := range ValidationErrors(err) {
		got[ve.Field] = ve
	}
	assert.Equal(t, "date must be a date in YYYY-MM-DD format", got["date"].Message)
	assert.Equal(t, "ERR_LTE", got["fatigue"].Code)
	assert.Equal(t, map[string]any{"max": "10"}, got["fatigue"].Params)
	assert.Equal(t, "mode must be one of: adt, standard", got["mode"].Message)
	assert.Equal(t, "notes must be at most 5 characters", got["notes"].Message)
}

func TestReadAndValidateRequest_AppliesDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/entries/2024-03-01", strings.NewReader(`{"fatigue":4}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("date")
	c.SetParamValues("2024-03-01")

	var body sampleRequest
	assert.Empty(t, ReadAndValidateRequest(c, &body))
	assert.Equal(t, "2024-03-01", body.Date)
	assert.Equal(t, "adt", body.Mode)
	assert.Equal(t, 4.0, *body.Fatigue)
}

func TestReadAndValidateRequest_BindError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"fatigue":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	errs := ReadAndValidateRequest(c, &sampleRequest{})
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}
