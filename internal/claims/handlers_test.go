package claims

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"carrykind-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClaimsApp(t *testing.T, available int) (*fiber.App, *claimsFixture, uuid.UUID) {
	f, causeID := setupClaimsTest(t, available)
	h := &Handlers{Service: f.svc}
	app := fiber.New()
	app.Post("/api/v1/claims/submit", h.Submit)
	app.Post("/api/v1/claims/verify", h.Verify)
	app.Post("/api/v1/claims/resend", h.Resend)
	app.Get("/api/v1/claims/status", h.Status)
	app.Post("/api/v1/claims/cancel", h.Cancel)
	app.Patch("/api/v1/claims/advance", h.Advance)
	return app, f, causeID
}

func postJSON(t *testing.T, app *fiber.App, path string, payload map[string]string) (int, map[string]interface{}) {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestSubmitHandler_MissingFields(t *testing.T) {
	app, _, _ := newClaimsApp(t, 5)
	code, _ := postJSON(t, app, "/api/v1/claims/submit", map[string]string{"email": "a@example.com"})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestSubmitHandler_InvalidEmail(t *testing.T) {
	app, _, causeID := newClaimsApp(t, 5)
	code, _ := postJSON(t, app, "/api/v1/claims/submit", map[string]string{
		"cause_id": causeID.String(),
		"email":    "not an email",
		"channel":  models.ChannelDirect,
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestSubmitHandler_Created(t *testing.T) {
	app, _, causeID := newClaimsApp(t, 5)
	code, out := postJSON(t, app, "/api/v1/claims/submit", map[string]string{
		"cause_id": causeID.String(),
		"email":    "a@example.com",
		"channel":  models.ChannelDirect,
	})
	assert.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "success", out["status"])
}

func TestSubmitHandler_OutOfStockOffersWaitlist(t *testing.T) {
	app, _, causeID := newClaimsApp(t, 0)
	code, out := postJSON(t, app, "/api/v1/claims/submit", map[string]string{
		"cause_id": causeID.String(),
		"email":    "a@example.com",
		"channel":  models.ChannelDirect,
	})
	assert.Equal(t, fiber.StatusConflict, code)
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, "join-waitlist", details["action"])
}

func TestSubmitHandler_DuplicateOffersView(t *testing.T) {
	app, _, causeID := newClaimsApp(t, 5)
	code, _ := postJSON(t, app, "/api/v1/claims/submit", map[string]string{
		"cause_id": causeID.String(),
		"email":    "a@example.com",
		"channel":  models.ChannelQR,
	})
	require.Equal(t, fiber.StatusCreated, code)

	code, out := postJSON(t, app, "/api/v1/claims/submit", map[string]string{
		"cause_id": causeID.String(),
		"email":    "a@example.com",
		"channel":  models.ChannelQR,
	})
	assert.Equal(t, fiber.StatusConflict, code)
	details := out["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, "view-claim", details["action"])
}

func TestVerifyHandler_BadCodeFormat(t *testing.T) {
	app, _, _ := newClaimsApp(t, 5)
	code, _ := postJSON(t, app, "/api/v1/claims/verify", map[string]string{
		"claim_id": uuid.New().String(),
		"code":     "12ab56",
	})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestVerifyHandler_Success(t *testing.T) {
	app, f, causeID := newClaimsApp(t, 5)
	code, out := postJSON(t, app, "/api/v1/claims/submit", map[string]string{
		"cause_id": causeID.String(),
		"email":    "a@example.com",
		"channel":  models.ChannelDirect,
	})
	require.Equal(t, fiber.StatusCreated, code)
	claimID := out["data"].(map[string]interface{})["claim_id"].(string)

	code, out = postJSON(t, app, "/api/v1/claims/verify", map[string]string{
		"claim_id": claimID,
		"code":     f.sender.lastCode("a@example.com"),
	})
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, models.ClaimVerified, out["data"].(map[string]interface{})["status"])
}

func TestStatusHandler(t *testing.T) {
	app, _, causeID := newClaimsApp(t, 5)
	code, _ := postJSON(t, app, "/api/v1/claims/submit", map[string]string{
		"cause_id": causeID.String(),
		"email":    "a@example.com",
		"channel":  models.ChannelQR,
	})
	require.Equal(t, fiber.StatusCreated, code)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/claims/status?cause_id="+causeID.String()+"&email=a@example.com", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/claims/status?cause_id="+causeID.String()+"&email=nobody@example.com", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdvanceHandler_RejectsUnknownTarget(t *testing.T) {
	app, _, _ := newClaimsApp(t, 5)
	body, _ := json.Marshal(map[string]string{"claim_id": uuid.New().String(), "to": "teleported"})
	req := httptest.NewRequest("PATCH", "/api/v1/claims/advance", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
