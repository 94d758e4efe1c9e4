package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/platform/logger"
	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/router"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: nil,
		Logger:       logger.Noop(),
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_MedicineToAdherence(t *testing.T) {
	ts := newTestServer(t)
	userID := "user-1"

	// 1) Crear medicina con dos tomas diarias
	medID := createMedicine(t, ts.URL, userID, map[string]any{
		"name":       "Metformin",
		"dosage":     "500mg",
		"times":      []string{"08:00", "20:00"},
		"start_date": time.Now().Format("2006-01-02"),
	})

	// 2) El scheduler materializó dosis pendientes dentro del horizonte
	doseKeys := listUpcomingKeys(t, ts.URL, userID, 48)
	if len(doseKeys) == 0 {
		t.Fatalf("expected upcoming doses after creating medicine")
	}

	// 3) Confirmación anticipada (pending -> taken) vale sin recordatorio
	{
		st, body := doReq(t, ts.URL, "POST", "/doses/"+doseKeys[0]+"/confirm", userID, map[string]any{
			"outcome": "taken",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 confirm taken, got %d body=%s", st, string(body))
		}

		var resp struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Status != "taken" {
			t.Fatalf("expected status taken, got %q", resp.Status)
		}
	}

	// 4) Confirmar dos veces es conflicto: la dosis ya es terminal
	{
		st, _ := doReq(t, ts.URL, "POST", "/doses/"+doseKeys[0]+"/confirm", userID, map[string]any{
			"outcome": "skipped",
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 on double confirm, got %d", st)
		}
	}

	// 5) Snooze sobre una dosis que nunca fue recordada es conflicto
	if len(doseKeys) > 1 {
		st, _ := doReq(t, ts.URL, "POST", "/doses/"+doseKeys[1]+"/snooze", userID, map[string]any{
			"minutes": 5,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 snoozing pending dose, got %d", st)
		}
	}

	// 6) El historial refleja la toma (la dosis confirmada quedó fuera de la
	// ventana de adherencia pasada porque su horario es futuro)
	{
		st, body := doReq(t, ts.URL, "GET", "/doses/history?status=taken", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 history, got %d body=%s", st, string(body))
		}
		var items []struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &items)
		if len(items) != 1 || items[0].Status != "taken" {
			t.Fatalf("expected exactly 1 taken dose in history, got %v", items)
		}
	}

	// El endpoint de adherencia responde bien formado aunque la ventana
	// pasada esté vacía
	{
		st, body := doReq(t, ts.URL, "GET", "/adherence?days=7", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 adherence, got %d body=%s", st, string(body))
		}
		var resp struct {
			Total int     `json:"total"`
			Rate  float64 `json:"adherence_rate"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("adherence response not json: %v body=%s", err, string(body))
		}
	}

	// 7) Desactivar la medicina conserva el historial
	{
		st, body := doReq(t, ts.URL, "DELETE", "/medicines/"+medID, userID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 deactivate, got %d body=%s", st, string(body))
		}

		st, body = doReq(t, ts.URL, "GET", "/doses/history", userID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 history, got %d body=%s", st, string(body))
		}
		var items []map[string]any
		_ = json.Unmarshal(body, &items)
		if len(items) == 0 {
			t.Fatalf("expected history to survive deactivation")
		}
	}
}

func TestHTTP_DoseOwnership(t *testing.T) {
	ts := newTestServer(t)

	createMedicine(t, ts.URL, "owner-1", map[string]any{
		"name":       "Lisinopril",
		"dosage":     "10mg",
		"times":      []string{"09:00"},
		"start_date": time.Now().Format("2006-01-02"),
	})

	keys := listUpcomingKeys(t, ts.URL, "owner-1", 48)
	if len(keys) == 0 {
		t.Fatalf("expected upcoming doses for owner")
	}

	// Otro usuario ve 404, igual que si la dosis no existiera
	st, _ := doReq(t, ts.URL, "POST", "/doses/"+keys[0]+"/confirm", "intruder-1", map[string]any{
		"outcome": "taken",
	})
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 confirming someone else's dose, got %d", st)
	}
}

func TestHTTP_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	// Sin X-Debug-User-ID ni token no hay claims
	st, _ := doReq(t, ts.URL, "GET", "/medicines", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", st)
	}
}

func TestHTTP_CaregiverCRUD(t *testing.T) {
	ts := newTestServer(t)
	userID := "user-1"

	st, body := doReq(t, ts.URL, "POST", "/caregivers", userID, map[string]any{
		"name":            "Ana",
		"relationship":    "daughter",
		"email":           "ana@example.com",
		"notify_by_email": true,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create caregiver, got %d body=%s", st, string(body))
	}

	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &created)
	if created.ID == "" {
		t.Fatalf("create caregiver: missing id body=%s", string(body))
	}

	// Sin email ni teléfono no hay forma de escalar => 400
	st, _ = doReq(t, ts.URL, "POST", "/caregivers", userID, map[string]any{
		"name": "Sin Contacto",
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 caregiver without contact, got %d", st)
	}

	st, body = doReq(t, ts.URL, "GET", "/caregivers", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list caregivers, got %d body=%s", st, string(body))
	}
	var items []map[string]any
	_ = json.Unmarshal(body, &items)
	if len(items) != 1 {
		t.Fatalf("expected 1 caregiver, got %d", len(items))
	}

	// Borrar ajeno => 404
	st, _ = doReq(t, ts.URL, "DELETE", "/caregivers/"+created.ID, "other-user", nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 deleting someone else's caregiver, got %d", st)
	}

	st, _ = doReq(t, ts.URL, "DELETE", "/caregivers/"+created.ID, userID, nil)
	if st != http.StatusNoContent {
		t.Fatalf("expected 204 delete caregiver, got %d", st)
	}
}

func createMedicine(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/medicines", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medicine, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create medicine: missing id body=%s", string(body))
	}
	return resp.ID
}

func listUpcomingKeys(t *testing.T, baseURL, userID string, hours int) []string {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/doses/upcoming?hours="+strconv.Itoa(hours), userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 upcoming, got %d body=%s", st, string(body))
	}

	var items []struct {
		Key string `json:"key"`
	}
	_ = json.Unmarshal(body, &items)

	keys := make([]string, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	return keys
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
