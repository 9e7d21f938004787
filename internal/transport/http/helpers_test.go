package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"curanet/internal/transport/http/mocks"
	"curanet/pkg/platform/middleware/auth"
)

// stubValidator resolves pre-registered opaque tokens without real JWT
// parsing; the JWT path is covered by the auth middleware's own tests.
type stubValidator struct {
	tokens map[string]*auth.Claims
}

func (v *stubValidator) ValidateToken(tokenString string) (*auth.Claims, error) {
	if claims, ok := v.tokens[tokenString]; ok {
		return claims, nil
	}
	return nil, fmt.Errorf("unknown token")
}

type testRouter struct {
	handler   http.Handler
	validator *stubValidator

	consent   *mocks.MockConsentService
	emergency *mocks.MockEmergencyService
	trail     *mocks.MockTrailReader
	access    *mocks.MockAccessAuthorizer
	limiter   *mocks.MockRedeemLimiter
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	tr := &testRouter{
		validator: &stubValidator{tokens: map[string]*auth.Claims{}},
		consent:   mocks.NewMockConsentService(ctrl),
		emergency: mocks.NewMockEmergencyService(ctrl),
		trail:     mocks.NewMockTrailReader(ctrl),
		access:    mocks.NewMockAccessAuthorizer(ctrl),
		limiter:   mocks.NewMockRedeemLimiter(ctrl),
	}
	tr.handler = NewRouter(Deps{
		Consent:   tr.consent,
		Emergency: tr.emergency,
		Trail:     tr.trail,
		Access:    tr.access,
		Redeems:   tr.limiter,
		Validator: tr.validator,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return tr
}

// registerToken maps an opaque bearer token to an actor and role.
func (tr *testRouter) registerToken(token, subject, role string) {
	claims := &auth.Claims{Role: role}
	claims.Subject = subject
	tr.validator.tokens[token] = claims
}

// do issues a request against the router and returns the recorder.
func (tr *testRouter) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals the response body into a generic map.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// assertErrorResponse asserts the uniform error envelope code.
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()
	resp := decodeBody(t, w)
	assert.Equal(t, expectedCode, resp["error"])
}
