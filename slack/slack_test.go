package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"nutriplan"
	"nutriplan/slack"
)

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}
}

func TestNewClient(t *testing.T) {
	client := slack.NewClient("http://slack.com/webhook", nil)
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr error
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return okResponse(), nil
			},
			wantErr: nil,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: fmt.Errorf("failed to post message: 400 Bad Request"),
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: fmt.Errorf("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#nutrition-plans", "Hola")
			should.Equal(t, tt.wantErr, err)
		})
	}
}

func samplePlan() nutriplan.PlanResult {
	return nutriplan.PlanResult{
		RunID:   "run-42",
		Targets: nutriplan.NutritionTargets{DailyCalories: 2000, Grams: nutriplan.Macros{Carbs: 225, Protein: 125, Fat: 66.7}},
		Allocation: nutriplan.MealAllocation{Slots: []nutriplan.SlotTarget{
			{Slot: nutriplan.SlotBreakfast, Calories: 500},
			{Slot: nutriplan.SlotLunch, Calories: 700},
			{Slot: nutriplan.SlotDinner, Calories: 500},
		}},
		Selections: map[nutriplan.Slot]nutriplan.MealSelection{
			nutriplan.SlotLunch:     {Slot: nutriplan.SlotLunch, Name: "Pollo grillado con arroz", Calories: 650, Origin: nutriplan.OriginSubstituted},
			nutriplan.SlotBreakfast: {Slot: nutriplan.SlotBreakfast, Name: "Tostadas con palta", Calories: 450, Origin: nutriplan.OriginGenerated},
		},
		Summary:  nutriplan.ValidationSummary{CandidatesSent: 12, Validated: 1, Substituted: 1, Dropped: 1},
		Warnings: []string{"no candidates for cena"},
	}
}

func TestFormatPlan(t *testing.T) {
	text := slack.FormatPlan(samplePlan())

	should.Contains(t, text, "`run-42`")
	should.Contains(t, text, "*2000 kcal*")
	should.Contains(t, text, "• *Desayuno*: Tostadas con palta (450 / 500 kcal)\n• *Almuerzo*: Pollo grillado con arroz (650 / 700 kcal) _sustituida_\n")
	should.Contains(t, text, "• *Cena*: sin receta, requiere revisión")
	should.Contains(t, text, "12 candidatas, 1 válidas, 1 sustituidas, 1 descartadas, 0 sin verificar")
	should.Contains(t, text, "> no candidates for cena")
	should.NotContains(t, text, "plan provisorio")
}

func TestNotifyPlan(t *testing.T) {
	var payload map[string]any
	client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		must.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
		return okResponse(), nil
	}})

	must.NoError(t, slack.NotifyPlan(context.Background(), client, "#plans", samplePlan()))
	should.Equal(t, "#plans", payload["channel"])
	should.Equal(t, slack.FormatPlan(samplePlan()), payload["text"])

	failing := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("network error")
	}})
	err := slack.NotifyPlan(context.Background(), failing, "#plans", samplePlan())
	should.EqualError(t, err, "failed to notify plan run-42: network error")
}
